package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Бэкенд-API отдаёт одни и те же поля в разных формах: число, строка,
// вложенный объект. Типы в этом файле принимают любую из известных форм
// и приводят её к одному виду, чтобы остальной код не занимался угадыванием.
// The upstream API returns the same fields in different shapes: number,
// string, nested object. Types in this file accept any known shape and fold
// it into one canonical form so the rest of the code does no guessing.

// FlexRef - ссылка на сущность (truck, statement, owner, driver).
// Принимает число, строку с числом или объект с полем id/_id.
type FlexRef int64

// UnmarshalJSON реализует json.Unmarshaler для FlexRef.
func (f *FlexRef) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = 0
		return nil
	}

	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = FlexRef(n)
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		parsed, perr := strconv.ParseInt(strings.TrimSpace(str), 10, 64)
		if perr != nil {
			*f = 0
			return nil
		}
		*f = FlexRef(parsed)
		return nil
	}

	var obj struct {
		ID    *FlexRef `json:"id"`
		AltID *FlexRef `json:"_id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	if obj.ID != nil && *obj.ID != 0 {
		*f = *obj.ID
	} else if obj.AltID != nil {
		*f = *obj.AltID
	} else {
		*f = 0
	}
	return nil
}

// MarshalJSON сериализует FlexRef как число.
func (f FlexRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(f))
}

// Int64 возвращает числовое значение ссылки.
func (f FlexRef) Int64() int64 { return int64(f) }

// FlexName - имя, которое может прийти строкой или объектом {id, name}.
// Сохраняет и имя, и id, если тот был в объекте.
type FlexName struct {
	Name string
	ID   int64
}

// UnmarshalJSON реализует json.Unmarshaler для FlexName.
func (f *FlexName) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = FlexName{}
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		f.Name = str
		f.ID = 0
		return nil
	}

	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		f.ID = n
		f.Name = ""
		return nil
	}

	var obj struct {
		ID       FlexRef `json:"id"`
		Name     string  `json:"name"`
		FullName string  `json:"full_name"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	f.ID = obj.ID.Int64()
	f.Name = obj.Name
	if f.Name == "" {
		f.Name = obj.FullName
	}
	return nil
}

// MarshalJSON сериализует FlexName как строку с именем.
func (f FlexName) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Name)
}

// String возвращает имя.
func (f FlexName) String() string { return f.Name }

// FlexMoney - денежное значение, приходящее числом или строкой.
// Хранится строкой в том виде, в котором пришло ("-40", "100.00").
type FlexMoney string

// UnmarshalJSON реализует json.Unmarshaler для FlexMoney.
func (m *FlexMoney) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*m = ""
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*m = FlexMoney(str)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*m = FlexMoney(num.String())
	return nil
}

// MarshalJSON сериализует FlexMoney как строку.
func (m FlexMoney) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(m))
}

// String возвращает исходное строковое представление.
func (m FlexMoney) String() string { return string(m) }

// IsEmpty сообщает, было ли значение пустым или null.
func (m FlexMoney) IsEmpty() bool { return strings.TrimSpace(string(m)) == "" }

// DriverList - поле driver у грузовика. Принимает массив водителей,
// одиночный объект водителя или голый числовой id.
type DriverList []Driver

// UnmarshalJSON реализует json.Unmarshaler для DriverList.
func (dl *DriverList) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*dl = nil
		return nil
	}

	var list []Driver
	if err := json.Unmarshal(b, &list); err == nil {
		*dl = DriverList(list)
		return nil
	}

	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		if n == 0 {
			*dl = nil
			return nil
		}
		*dl = DriverList{{ID: FlexRef(n)}}
		return nil
	}

	var single Driver
	if err := json.Unmarshal(b, &single); err != nil {
		return err
	}
	if single.ID == 0 && single.FullName == "" {
		*dl = nil
		return nil
	}
	*dl = DriverList{single}
	return nil
}

// StatementRef - поле statement у юнита или стейтмента. Принимает число
// (id) или объект с id и ссылками на PDF. null остаётся nil-указателем,
// что и отличает ручной deduction от юнита, привязанного к стейтменту.
type StatementRef struct {
	ID         FlexRef `json:"id"`
	PDFFile    string  `json:"pdf_file"`
	PDFFileURL string  `json:"pdf_file_url"`
}

// UnmarshalJSON реализует json.Unmarshaler для StatementRef.
func (sr *StatementRef) UnmarshalJSON(b []byte) error {
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		sr.ID = FlexRef(n)
		return nil
	}

	type plain StatementRef
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*sr = StatementRef(p)
	return nil
}

// MarshalJSON сериализует StatementRef как числовой id.
func (sr StatementRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(sr.ID))
}
