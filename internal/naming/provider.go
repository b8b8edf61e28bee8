package naming

import (
	"context"
	"fmt"
	"strings"

	"autotrans/internal/config"
	"autotrans/internal/prompt"
)

// Request describes a conflict the provider is asked to resolve.
type Request struct {
	Conflict *Conflict
	Current  Overrides
	Title    string
	Remaster string
}

// OverrideProvider supplies shorter names after a naming conflict.
type OverrideProvider interface {
	// Override returns the overrides to try next; false gives up.
	Override(ctx context.Context, req Request) (Overrides, bool)
	// Confirm accepts or rejects the overridden directory names.
	Confirm(ctx context.Context, names []string) bool
	// FileStem returns a replacement stem for an extra file; "" gives up.
	FileStem(ctx context.Context, conflict *Conflict, name string) string
}

// None never overrides; every conflict is fatal for the release.
type None struct{}

func (None) Override(context.Context, Request) (Overrides, bool) { return Overrides{}, false }
func (None) Confirm(context.Context, []string) bool { return true }
func (None) FileStem(context.Context, *Conflict, string) string { return "" }

// Truncate shortens the title (then the remaster qualifier) by the
// conflict's excess and strips HTML entities. It never prompts.
type Truncate struct{}

// minTitleRunes bounds how short Truncate will make a title.
const minTitleRunes = 8

func (Truncate) Override(_ context.Context, req Request) (Overrides, bool) {
	next := req.Current
	title := firstNonEmpty(req.Current.Title, req.Title)
	remaster := firstNonEmpty(req.Current.Remaster, req.Remaster)

	if req.Conflict.HasEntity() {
		cleanTitle := htmlEntity.ReplaceAllString(title, "")
		cleanRemaster := htmlEntity.ReplaceAllString(remaster, "")
		if cleanTitle == title && cleanRemaster == remaster {
			return req.Current, false
		}
		next.Title = cleanTitle
		if remaster != "" {
			next.Remaster = cleanRemaster
		}
		return next, true
	}

	excess := req.Conflict.Excess()
	if excess == 0 {
		return req.Current, false
	}
	if shorter, ok := shorten(title, excess); ok {
		next.Title = shorter
		return next, true
	}
	if shorter, ok := shorten(remaster, excess); ok {
		next.Remaster = shorter
		return next, true
	}
	return req.Current, false
}

func (Truncate) Confirm(context.Context, []string) bool { return true }

func (Truncate) FileStem(_ context.Context, conflict *Conflict, name string) string {
	stem := name
	if idx := strings.LastIndex(name, "."); idx > 0 {
		stem = name[:idx]
	}
	excess := conflict.Excess()
	if excess == 0 {
		return ""
	}
	shorter, ok := shorten(stem, excess)
	if !ok {
		return ""
	}
	return shorter
}

func shorten(value string, excess int) (string, bool) {
	runes := []rune(value)
	keep := len(runes) - excess
	if keep < minTitleRunes {
		return "", false
	}
	return strings.TrimSpace(string(runes[:keep])), true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Interactive asks an operator for shorter names on a console.
type Interactive struct {
	console *prompt.Console
}

// NewInteractive returns a provider prompting on console.
func NewInteractive(console *prompt.Console) *Interactive {
	return &Interactive{console: console}
}

func (p *Interactive) ask(question string) string {
	answer, err := p.console.Ask(question)
	if err != nil {
		return ""
	}
	return answer
}

func (p *Interactive) Override(_ context.Context, req Request) (Overrides, bool) {
	if title := p.ask(fmt.Sprintf("%v\nInput a shorter base name or empty to set release name: ", req.Conflict)); title != "" {
		return Overrides{Title: title}, true
	}
	if remaster := p.ask(fmt.Sprintf("%v\nInput a shorter release name or empty to cancel: ", req.Conflict)); remaster != "" {
		return Overrides{Remaster: remaster}, true
	}
	return Overrides{}, false
}

func (p *Interactive) Confirm(_ context.Context, names []string) bool {
	var b strings.Builder
	b.WriteString("Outputs folder will be:\n")
	for _, name := range names {
		b.WriteString("\t- " + name + "\n")
	}
	b.WriteString("Continue? (y/n) ")
	ok, err := p.console.Confirm(b.String())
	return err == nil && ok
}

func (p *Interactive) FileStem(_ context.Context, conflict *Conflict, name string) string {
	return p.ask(fmt.Sprintf("%v\nInput a shorter file name for %s (without extension) or empty to rename the folder instead: ", conflict, name))
}

// ProviderFromConfig maps batch.name_override to a provider. Interactive mode
// falls back to Truncate when stdin is not a terminal.
func ProviderFromConfig(cfg *config.Config) OverrideProvider {
	if cfg == nil {
		return None{}
	}
	switch cfg.Batch.NameOverride {
	case config.NameOverrideTruncate:
		return Truncate{}
	case config.NameOverrideInteractive:
		if prompt.IsInteractive() {
			return NewInteractive(prompt.Stdio())
		}
		return Truncate{}
	default:
		return None{}
	}
}
