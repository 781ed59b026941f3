// Package resolve maps dotted module names to file paths.
//
// A module name such as "SeeMe.bar.baz" is split into a namespace ("SeeMe")
// and a sub-name ("bar.baz"). The namespace selects a base directory from
// Namespaces; the sub-name becomes a relative path:
//
//	ns := resolve.Namespaces{"SeeMe": "js/", "": "../lib/js/"}
//	ns.Resolve("SeeMe.bar.baz")     // "js/bar/baz.js"
//	ns.Resolve("SeeMe.bar.baz.css") // "js/bar/baz.css"
//	ns.Resolve("Median.foobar")     // "../lib/js/Median/foobar.js"
//
// Paths always use "/" so the same result works as a URL for the runtime
// loader.
package resolve

import (
	"fmt"
	"strings"
)

const (
	SuffixJS  = ".js"
	SuffixCSS = ".css"
)

// DefaultNamespace is the key of the fallback base directory.
const DefaultNamespace = ""

// Namespaces maps namespace keys to base directories.
type Namespaces map[string]string

// ConfigurationError reports a namespace configuration that cannot resolve a name.
type ConfigurationError struct {
	Name    string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Name == "" {
		return "configuration error: " + e.Message
	}
	return fmt.Sprintf("configuration error resolving %q: %s", e.Name, e.Message)
}

// Resolve converts a module name to a file path.
//
// Only the exact lowercase ".css" suffix marks a stylesheet; everything else
// gets ".js". A trailing ".js" is optional, so "bar" and "bar.js" resolve to
// the same file, while "bar.JS" is the module "bar/JS.js".
func Resolve(name string, ns Namespaces) (string, error) {
	suffix := SuffixJS
	if strings.HasSuffix(name, SuffixCSS) {
		suffix = SuffixCSS
	}
	cmpName := strings.TrimSuffix(name, suffix)

	var (
		base   string
		subCmp string
		found  bool
	)
	if first, rest, ok := strings.Cut(cmpName, "."); ok && first != "" {
		base, found = ns[first]
		subCmp = rest
	}
	if !found {
		base, found = ns[DefaultNamespace]
		if !found {
			return "", &ConfigurationError{Name: name, Message: "default namespace path is not configured"}
		}
		subCmp = cmpName
	}

	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + strings.ReplaceAll(subCmp, ".", "/") + suffix, nil
}

// Resolve is shorthand for Resolve(name, ns).
func (ns Namespaces) Resolve(name string) (string, error) {
	return Resolve(name, ns)
}

// IsCSS reports whether a resolved path names a stylesheet.
func IsCSS(path string) bool {
	return strings.HasSuffix(path, SuffixCSS)
}

// ParseNamespaces parses the command-line form "Foo:/lib/foo,Bar:/lib/bar,:/default".
// An entry with an empty key sets the default namespace.
func ParseNamespaces(conf string) (Namespaces, error) {
	ns := make(Namespaces)
	for _, item := range strings.Split(conf, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key, path, ok := strings.Cut(item, ":")
		if !ok {
			return nil, &ConfigurationError{Message: fmt.Sprintf("namespace entry %q must have the form key:path", item)}
		}
		ns[key] = path
	}
	return ns, nil
}
