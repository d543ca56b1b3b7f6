package model

import (
	"encoding/json"
	"testing"
	"time"
)

// TestMetadataValue_JSON проверяет сериализацию «голыми» примитивами
// и восстановление вариантов при чтении.
func TestMetadataValue_JSON(t *testing.T) {
	tests := []struct {
		name string
		in   MetadataValue
		want string
	}{
		{"строка", StringValue("alpha"), `"alpha"`},
		{"число", NumberValue(42), `42`},
		{"дробное", NumberValue(2.5), `2.5`},
		{"bool", BoolValue(true), `true`},
		{"дата", TimeValue(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)), `"2026-05-01T10:00:00Z"`},
	}

	for _, tt := range tests {
		data, err := json.Marshal(tt.in)
		if err != nil {
			t.Fatalf("%s: marshal: %v", tt.name, err)
		}
		if string(data) != tt.want {
			t.Errorf("%s: marshal = %s, ожидался %s", tt.name, data, tt.want)
		}

		var back MetadataValue
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("%s: unmarshal: %v", tt.name, err)
		}
		if back.Kind != tt.in.Kind {
			t.Errorf("%s: Kind после round-trip = %v, ожидался %v", tt.name, back.Kind, tt.in.Kind)
		}
	}
}

// TestMetadataValue_UnmarshalSniffing проверяет порядок распознавания:
// bool → число → дата → строка; чужой JSON деградирует до строки.
func TestMetadataValue_UnmarshalSniffing(t *testing.T) {
	var v MetadataValue

	if err := json.Unmarshal([]byte(`"2026-05-01T10:00:00Z"`), &v); err != nil {
		t.Fatal(err)
	}
	if v.Kind != MetadataTime {
		t.Errorf("RFC3339-строка распознана как %v, ожидалась дата", v.Kind)
	}

	if err := json.Unmarshal([]byte(`"просто текст"`), &v); err != nil {
		t.Fatal(err)
	}
	if v.Kind != MetadataString || v.Str != "просто текст" {
		t.Errorf("строка = %+v", v)
	}

	// Объект — не ошибка, сохраняется строкой
	if err := json.Unmarshal([]byte(`{"nested":1}`), &v); err != nil {
		t.Fatalf("объект дал ошибку: %v", err)
	}
	if v.Kind != MetadataString {
		t.Errorf("объект распознан как %v, ожидалась строка", v.Kind)
	}

	// Строковое значение, совпадающее с RFC3339, после round-trip
	// поглощается вариантом даты; смещение нормализуется в UTC
	raw, err := json.Marshal(StringValue("2026-05-01T13:00:00+03:00"))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatal(err)
	}
	if v.Kind != MetadataTime {
		t.Errorf("RFC3339-строка после round-trip = %v, ожидалась дата", v.Kind)
	}
	if got := v.String(); got != "2026-05-01T10:00:00Z" {
		t.Errorf("String() = %q, ожидалось нормализованное UTC-представление", got)
	}
}

// TestMetadataValue_String проверяет строковые представления вариантов.
func TestMetadataValue_String(t *testing.T) {
	tests := []struct {
		in   MetadataValue
		want string
	}{
		{StringValue("alpha"), "alpha"},
		{NumberValue(3), "3"},
		{NumberValue(2.5), "2.5"},
		{BoolValue(false), "false"},
		{TimeValue(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)), "2026-01-02T03:04:05Z"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("String() = %q, ожидался %q", got, tt.want)
		}
	}
}

// TestFileRecord_SizeBytesPrecision проверяет, что размер файла
// переживает JSON round-trip без потери точности выше 2^53.
func TestFileRecord_SizeBytesPrecision(t *testing.T) {
	huge := int64(1)<<60 + 1

	data, err := json.Marshal(map[string]int64{"size_bytes": huge})
	if err != nil {
		t.Fatal(err)
	}
	var back map[string]int64
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back["size_bytes"] != huge {
		t.Errorf("size_bytes = %d, ожидался %d", back["size_bytes"], huge)
	}
}
