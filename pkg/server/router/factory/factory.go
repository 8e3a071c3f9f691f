// Package factory selects a router adapter by name.
package factory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nimburion/validation-app/pkg/server/router"
	ginadapter "github.com/nimburion/validation-app/pkg/server/router/gin"
	gorillaadapter "github.com/nimburion/validation-app/pkg/server/router/gorilla"
	nethttpadapter "github.com/nimburion/validation-app/pkg/server/router/nethttp"
)

// DefaultType is used when no router type is configured.
const DefaultType = "nethttp"

var adapters = map[string]func() router.Router{
	"nethttp": func() router.Router { return nethttpadapter.NewRouter() },
	"gin":     func() router.Router { return ginadapter.NewRouter() },
	"gorilla": func() router.Router { return gorillaadapter.NewRouter() },
}

// NewRouter creates the adapter registered under routerType.
func NewRouter(routerType string) (router.Router, error) {
	name := Normalize(routerType)
	if create, ok := adapters[name]; ok {
		return create(), nil
	}
	return nil, fmt.Errorf("unsupported router type %q (supported: %s)", routerType, strings.Join(SupportedTypes(), ", "))
}

// Normalize lower-cases and trims a router type, mapping empty to DefaultType.
func Normalize(routerType string) string {
	name := strings.ToLower(strings.TrimSpace(routerType))
	if name == "" {
		return DefaultType
	}
	return name
}

// IsSupported reports whether routerType names a registered adapter.
func IsSupported(routerType string) bool {
	_, ok := adapters[Normalize(routerType)]
	return ok
}

// SupportedTypes returns the registered adapter names in sorted order.
func SupportedTypes() []string {
	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
