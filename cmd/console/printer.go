// AngelaMos | 2026
// printer.go

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/civiclens/console-client/internal/translate"
)

// printer writes user-facing lines, translating them when a target
// language was requested. Translation failures fall back to English;
// they never fail the command.
type printer struct {
	translator translate.Translator
	lang       string
}

func newPrinter(translator translate.Translator, lang string) *printer {
	return &printer{translator: translator, lang: lang}
}

func (p *printer) printf(ctx context.Context, format string, args ...any) {
	line := fmt.Sprintf(format, args...)

	if p.lang != "" {
		translated, err := p.translator.Translate(ctx, line, p.lang)
		if err != nil {
			slog.Debug("translation failed", "error", err)
		} else {
			line = translated
		}
	}

	fmt.Println(line)
}
