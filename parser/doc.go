// Package parser находит ИНН в выписках ЕГРЮЛ внутри распакованных папок заявок.
//
// Конвейер состоит из трех шагов:
//
//   - ExtractText достает текст из документа (XML читается как текст, PDF
//     склеивается постранично);
//   - MatchINN находит в тексте 10- и 12-значные номера после метки "ИНН";
//   - Scanner обходит папки заявок, собирает уникальные ИНН по каждой папке и
//     объединяет их в общий набор.
//
// Ошибки отдельных файлов не прерывают обработку соседних файлов, если не выбрана
// другая политика (см. FailurePolicy).
package parser
