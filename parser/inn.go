package parser

import (
	"regexp"
	"unicode"
	"unicode/utf8"
)

// innPattern ловит метку и всю следующую за ней серию цифр. Длина серии и граница
// слова проверяются отдельно, чтобы 11-значный номер не давал 10-значного совпадения.
// Пробелы включают NBSP и прочие юникодные разделители, которые часто встречаются в PDF.
var innPattern = regexp.MustCompile(`\(?ИНН\)?:?[\s\p{Z}\x{0085}]*(\d+)`)

// MatchINN возвращает все ИНН в тексте в порядке появления, повторы сохраняются.
// ИНН это ровно 10 (юрлицо) или 12 (физлицо) цифр сразу после метки "ИНН",
// за которыми не идет буква, цифра или подчеркивание. Контрольная сумма не проверяется.
func MatchINN(text string) []string {
	var found []string
	for _, loc := range innPattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[2], loc[3]
		if n := end - start; n != 10 && n != 12 {
			continue
		}
		if !boundaryAt(text, end) {
			continue
		}
		found = append(found, text[start:end])
	}
	return found
}

func boundaryAt(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !(r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsNumber(r))
}
