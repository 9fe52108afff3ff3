package server

import (
	"html/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// templateFuncs форматирование чисел по-русски: 1 234 567,89
var templateFuncs = template.FuncMap{
	"money": func(v float64) string {
		return message.NewPrinter(language.Russian).Sprintf("%.2f", v)
	},
	"percent": func(v float64) string {
		return message.NewPrinter(language.Russian).Sprintf("%.1f%%", v)
	},
}
