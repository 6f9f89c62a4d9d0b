package checker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/faucetdb/driftguard/internal/model"
)

// checkRoutes reports routes whose handler function is not defined in any
// handler file.
func (c *Checker) checkRoutes(routes []model.Route, handlers map[string]model.Location) []model.Diagnostic {
	if len(routes) == 0 {
		return nil
	}
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)

	var diags []model.Diagnostic
	for _, r := range routes {
		if r.Handler == "" {
			c.logger().Debug("route without handler", "method", r.Method, "path", r.Path)
			continue
		}
		fn := HandlerFunction(r.Handler)
		if _, ok := handlers[r.Handler]; ok {
			continue
		}
		if _, ok := handlers[fn]; ok {
			continue
		}
		diags = append(diags, diagnostic(model.SeverityError, model.CategoryMissingHandler, r.Source,
			fmt.Sprintf("route %s %s names handler %q, which is not defined in any handler file", r.Method, r.Path, r.Handler),
			didYouMean(c.suggest(fn, names))))
	}
	return diags
}

// HandlerFunction reduces a handler reference such as "handlers.users.get_user"
// or "handlers/users.py:get_user" to its function name.
func HandlerFunction(ref string) string {
	if i := strings.LastIndexAny(ref, ":."); i >= 0 && i < len(ref)-1 {
		return ref[i+1:]
	}
	return ref
}
