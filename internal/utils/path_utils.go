package utils

import (
	"net/url"
	"path/filepath"
)

// ResolveHref resolves an xsl:import/xsl:include href against the
// stylesheet module's own base URI, the way a browser resolves a relative
// <link>: an absolute href (with a scheme) or an empty baseURI is returned
// as-is, otherwise href is resolved relative to baseURI per RFC 3986.
func ResolveHref(baseURI, href string) string {
	if baseURI == "" || href == "" {
		return href
	}
	base, err := url.Parse(baseURI)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// ExtractModuleName derives a stylesheet module's display name from its
// href or file path: the base file name with its extension stripped, used
// as the alias QualifiedMemberName prefixes onto a colliding included
// template's name.
func ExtractModuleName(path string) string {
	name := filepath.Base(path)
	if ext := filepath.Ext(name); ext != "" {
		name = name[:len(name)-len(ext)]
	}
	return name
}

// GetModuleDir returns the directory a relative href inside path's module
// should resolve against: path's own directory if path names a file,
// path itself if it already names a directory (no extension).
func GetModuleDir(path string) string {
	if filepath.Ext(path) != "" {
		return filepath.Dir(path)
	}
	return path
}
