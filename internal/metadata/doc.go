// Package metadata enriches videos with tags, a cleaned description, and
// the hashtags, links, and sponsor mentions extracted from it.
package metadata
