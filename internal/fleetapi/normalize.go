package fleetapi

import (
	"bytes"
	"encoding/json"
)

// Бэкенд отдаёт списки в нескольких формах: голый массив, обёртка
// {trucks|data|results|items: [...]}, а иногда объект-словарь, где элементы
// лежат в значениях. NormalizeListResponse сводит все известные формы
// к одному списку сырых элементов; вызывающий код разбирает их в свой тип.
// The upstream returns lists in several shapes. NormalizeListResponse folds
// every known shape into a flat list of raw items.

var listWrapperKeys = []string{"trucks", "data", "results", "items"}

// NormalizeListResponse приводит сырой JSON-ответ к списку элементов.
// Неизвестная форма или null дают пустой список, не ошибку.
func NormalizeListResponse(raw json.RawMessage) []json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(trimmed, &list); err == nil {
		return list
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil
	}

	for _, key := range listWrapperKeys {
		inner, ok := obj[key]
		if !ok || bytes.Equal(bytes.TrimSpace(inner), []byte("null")) {
			continue
		}
		if err := json.Unmarshal(inner, &list); err == nil {
			return list
		}
		// Обёртка есть, но внутри объект-словарь - берём значения.
		var innerObj map[string]json.RawMessage
		if err := json.Unmarshal(inner, &innerObj); err == nil {
			return objectValues(innerObj)
		}
	}

	// Ни одного известного ключа-обёртки: сам объект - словарь элементов.
	return objectValues(obj)
}

func objectValues(obj map[string]json.RawMessage) []json.RawMessage {
	if len(obj) == 0 {
		return nil
	}
	values := make([]json.RawMessage, 0, len(obj))
	for _, v := range obj {
		values = append(values, v)
	}
	return values
}

// FirstOrObject обрабатывает ответы, которые приходят то массивом, то
// одиночным объектом (statement-by-driver): из массива берётся первый
// элемент, объект возвращается как есть. Пусто - nil.
func FirstOrObject(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(trimmed, &list); err == nil {
		if len(list) == 0 {
			return nil
		}
		return list[0]
	}

	if trimmed[0] == '{' {
		return trimmed
	}
	return nil
}
