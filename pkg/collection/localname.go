package collection

import "strings"

// LocalName derives the default bound-variable name from a template name: the
// final path segment without its last extension.
//
//	LocalName("partials/foo.erb") == "foo"
//	LocalName("bar") == "bar"
//	LocalName("a/item.html.tpl") == "item.html"
//
// The result is used verbatim. Names such as "user-row" are not valid
// template identifiers, and engines that validate context keys will fail
// every rendering; set Options.Local for those templates.
func LocalName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	return name
}
