package i18n

import (
	"context"
	"fmt"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pavelanni/wrongnote/internal/diagnosis"
)

const maxCauses = 5

// Guidebook serves diagnosis text from the locale files in the request's language.
type Guidebook struct {
	loc *i18n.Localizer
}

// GuideFromContext returns a guidebook for the localizer stored in ctx.
func GuideFromContext(ctx context.Context) *Guidebook {
	return &Guidebook{loc: localizerFromCtx(ctx)}
}

// Guidance returns the causes and prescription for category. Causes are read from
// Guidance.<category>.cause1, cause2 and so on until the first gap.
func (g *Guidebook) Guidance(category string) (diagnosis.Guidance, bool) {
	prefix := "Guidance." + category + "."
	pre, ok := lookup(g.loc, prefix+"pre")
	if !ok {
		return diagnosis.Guidance{}, false
	}
	out := diagnosis.Guidance{Pre: pre}
	out.During, _ = lookup(g.loc, prefix+"during")
	out.Post, _ = lookup(g.loc, prefix+"post")
	for i := 1; i <= maxCauses; i++ {
		c, ok := lookup(g.loc, fmt.Sprintf("%scause%d", prefix, i))
		if !ok {
			break
		}
		out.Causes = append(out.Causes, c)
	}
	return out, true
}

// Strategy returns the strength strategy for category.
func (g *Guidebook) Strategy(category string) (string, bool) {
	return lookup(g.loc, "Strategy."+category)
}

// OverallLabel names a strength that spans every category.
func (g *Guidebook) OverallLabel() string {
	if s, ok := lookup(g.loc, "Overall"); ok {
		return s
	}
	return "Overall"
}
