package engine

import (
	"fmt"
	"strings"

	"venuehq.io/banquet/internal/domain"
)

// factOwnerStep maps captured fact prefixes to the workflow step that
// promotes them into canonical fields.
var factOwnerStep = map[string]int{
	"contact":  domain.StepOffer,
	"products": domain.StepOffer,
	"billing":  domain.StepNegotiation,
}

// capture parks an out-of-order fact at a dotted path under
// event.captured, records its source message, and defers the owning
// intent when the workflow hasn't reached the owner step yet.
func (e *Engine) capture(ts *turnState, path string, value any, ownerStep int) {
	ev := ts.event
	if ev.Captured == nil {
		ev.Captured = map[string]any{}
	}
	setDotted(ev.Captured, path, value)
	ev.CapturedSources = append(ev.CapturedSources, fmt.Sprintf("%s:%s", ts.msg.MsgID, path))

	if ev.CurrentStep < ownerStep {
		intent := strings.SplitN(path, ".", 2)[0] + "_update"
		if !containsString(ev.DeferredIntents, intent) {
			ev.DeferredIntents = append(ev.DeferredIntents, intent)
		}
	}
	ts.persist = true
}

// captureFacts pulls out-of-order facts from the statement parts of the
// message. Facts found only in question parts stay turn-local (they feed
// the Q&A response, never requirements).
func (e *Engine) captureFacts(ts *turnState) {
	if name, ok := ts.userInfo["name"].(string); ok && name != "" {
		e.capture(ts, "contact.name", name, factOwnerStep["contact"])
	}
	if phone, ok := ts.userInfo["phone"].(string); ok && phone != "" {
		e.capture(ts, "contact.phone", phone, factOwnerStep["contact"])
	}

	// Product interest mentioned before the offer step is parked, not
	// applied: the offer step promotes it.
	if ts.event.CurrentStep < domain.StepOffer {
		statementText := joinStatements(ts)
		if matches := e.cat.MatchProducts(statementText, e.cfg.Workflow.ProductAutofillMin); len(matches) > 0 {
			ids := make([]string, 0, len(matches))
			for _, p := range matches {
				ids = append(ids, p.ID)
			}
			e.capture(ts, "products.interest", ids, factOwnerStep["products"])
		}
	}
}

// promoteCaptured moves parked facts into canonical fields once the
// workflow reaches their owning step, clearing the deferred intents.
func (e *Engine) promoteCaptured(ts *turnState, step int) {
	ev := ts.event
	if step >= domain.StepOffer {
		if name := dottedString(ev.Captured, "contact.name"); name != "" && ts.client.Profile.Name == "" {
			ts.client.Profile.Name = name
			ts.persist = true
		}
		if phone := dottedString(ev.Captured, "contact.phone"); phone != "" && ts.client.Profile.Phone == "" {
			ts.client.Profile.Phone = phone
			ts.persist = true
		}
		if ids := dottedStrings(ev.Captured, "products.interest"); len(ids) > 0 && len(ev.Products) == 0 {
			for _, id := range ids {
				if p := e.cat.ProductByID(id); p != nil {
					qty := 1
					if p.Unit == "per_person" {
						qty = ev.Requirements.Participants
					}
					ev.Products = append(ev.Products, domain.ProductLine{
						ProductID: p.ID, Name: p.Name, Unit: p.Unit,
						Quantity: qty, UnitPrice: p.Price,
					})
				}
			}
			ts.persist = true
		}
		ev.DeferredIntents = removeString(ev.DeferredIntents, "contact_update")
		ev.DeferredIntents = removeString(ev.DeferredIntents, "products_update")
	}
}

func setDotted(m map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	for i := 0; i < len(parts)-1; i++ {
		next, ok := m[parts[i]].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[parts[i]] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

func dotted(m map[string]any, path string) any {
	parts := strings.Split(path, ".")
	var cur any = m
	for _, p := range parts {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = mm[p]
	}
	return cur
}

func dottedString(m map[string]any, path string) string {
	if s, ok := dotted(m, path).(string); ok {
		return s
	}
	return ""
}

// dottedStrings tolerates both []string (in-memory) and []any (after a
// JSON round-trip).
func dottedStrings(m map[string]any, path string) []string {
	switch v := dotted(m, path).(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func containsString(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func removeString(xs []string, s string) []string {
	out := xs[:0]
	for _, x := range xs {
		if x != s {
			out = append(out, x)
		}
	}
	return out
}
