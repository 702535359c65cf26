package market

import "strings"

// HedgeTargets keeps the shortable tokens, optionally restricted to the
// symbols in allow, preserving universe order.
func HedgeTargets(universe []Token, allow []string) []Token {
	allowed := make(map[string]struct{}, len(allow))
	for _, symbol := range allow {
		if s := strings.ToUpper(strings.TrimSpace(symbol)); s != "" {
			allowed[s] = struct{}{}
		}
	}
	targets := make([]Token, 0, len(universe))
	for _, token := range universe {
		if !token.IsShortable {
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[strings.ToUpper(token.Symbol)]; !ok {
				continue
			}
		}
		targets = append(targets, token)
	}
	return targets
}
