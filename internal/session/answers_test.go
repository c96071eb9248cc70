package session

import (
	"errors"
	"testing"
)

func TestAnswerSheet_SelectSingleAndJudge(t *testing.T) {
	sheet := NewAnswerSheet(sampleExam(), nil)

	if err := sheet.Select(1, "B"); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if got, _ := sheet.Get(1); got != "B" {
		t.Errorf("answer = %q, want %q", got, "B")
	}

	// Re-selecting replaces, never accumulates.
	if err := sheet.Select(1, "C"); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if got, _ := sheet.Get(1); got != "C" {
		t.Errorf("answer = %q, want %q", got, "C")
	}

	if err := sheet.Select(3, "T"); err != nil {
		t.Fatalf("Select on judge failed: %v", err)
	}
}

func TestAnswerSheet_SelectRejectsInvalidOption(t *testing.T) {
	sheet := NewAnswerSheet(sampleExam(), nil)

	if err := sheet.Select(1, "Z"); !errors.Is(err, ErrInvalidOption) {
		t.Errorf("Select invalid option = %v, want ErrInvalidOption", err)
	}
	if err := sheet.Select(99, "A"); !errors.Is(err, ErrUnknownQuestion) {
		t.Errorf("Select unknown question = %v, want ErrUnknownQuestion", err)
	}
}

func TestAnswerSheet_ToggleCanonicalOrder(t *testing.T) {
	sheet := NewAnswerSheet(sampleExam(), nil)

	// Toggled in C, A, B order; stored form must be sorted.
	for _, key := range []string{"C", "A", "B"} {
		if err := sheet.Toggle(2, key); err != nil {
			t.Fatalf("Toggle(%q) failed: %v", key, err)
		}
	}
	if got, _ := sheet.Get(2); got != "A,B,C" {
		t.Errorf("answer = %q, want %q", got, "A,B,C")
	}
}

func TestAnswerSheet_ToggleOffRemovesKey(t *testing.T) {
	sheet := NewAnswerSheet(sampleExam(), nil)

	if err := sheet.Toggle(2, "A"); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if err := sheet.Toggle(2, "B"); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if err := sheet.Toggle(2, "A"); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if got, _ := sheet.Get(2); got != "B" {
		t.Errorf("answer = %q, want %q", got, "B")
	}

	// Toggling the last key off removes the entry entirely.
	if err := sheet.Toggle(2, "B"); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if _, ok := sheet.Get(2); ok {
		t.Error("entry still present after last key toggled off")
	}
}

func TestAnswerSheet_TypeMismatches(t *testing.T) {
	sheet := NewAnswerSheet(sampleExam(), nil)

	if err := sheet.Toggle(1, "A"); !errors.Is(err, ErrAnswerTypeMismatch) {
		t.Errorf("Toggle on single = %v, want ErrAnswerTypeMismatch", err)
	}
	if err := sheet.Select(2, "A"); !errors.Is(err, ErrAnswerTypeMismatch) {
		t.Errorf("Select on multiple = %v, want ErrAnswerTypeMismatch", err)
	}
	if err := sheet.SetText(1, "hi"); !errors.Is(err, ErrAnswerTypeMismatch) {
		t.Errorf("SetText on single = %v, want ErrAnswerTypeMismatch", err)
	}
}

func TestAnswerSheet_ShortTextEmptyStringIsPresent(t *testing.T) {
	sheet := NewAnswerSheet(sampleExam(), nil)

	if err := sheet.SetText(4, "an essay"); err != nil {
		t.Fatalf("SetText failed: %v", err)
	}
	if err := sheet.SetText(4, ""); err != nil {
		t.Fatalf("SetText with empty string failed: %v", err)
	}

	// Explicitly cleared text stays present as "", distinct from a
	// never-answered question whose key is absent.
	got, ok := sheet.Get(4)
	if !ok {
		t.Fatal("short answer key absent after empty-string set")
	}
	if got != "" {
		t.Errorf("answer = %q, want empty string", got)
	}

	sheet.Clear(4)
	if _, ok := sheet.Get(4); ok {
		t.Error("entry still present after Clear")
	}
}

func TestAnswerSheet_ApplyRequiresExactlyOneVariant(t *testing.T) {
	sheet := NewAnswerSheet(sampleExam(), nil)

	err := sheet.Apply(&SetAnswerRequest{QuestionID: 1})
	if !errors.Is(err, ErrAnswerTypeMismatch) {
		t.Errorf("Apply with no variant = %v, want ErrAnswerTypeMismatch", err)
	}

	err = sheet.Apply(&SetAnswerRequest{QuestionID: 1, Select: strptr("A"), Text: strptr("x")})
	if !errors.Is(err, ErrAnswerTypeMismatch) {
		t.Errorf("Apply with two variants = %v, want ErrAnswerTypeMismatch", err)
	}

	if err := sheet.Apply(&SetAnswerRequest{QuestionID: 1, Select: strptr("A")}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if got, _ := sheet.Get(1); got != "A" {
		t.Errorf("answer = %q, want %q", got, "A")
	}
}

func TestAnswerSheet_RestoreDropsUnknownQuestions(t *testing.T) {
	restored := map[uint]string{1: "A", 42: "stale"}
	sheet := NewAnswerSheet(sampleExam(), restored)

	if got, _ := sheet.Get(1); got != "A" {
		t.Errorf("restored answer = %q, want %q", got, "A")
	}
	if _, ok := sheet.Get(42); ok {
		t.Error("answer for unknown question survived restore")
	}
	if sheet.Count() != 1 {
		t.Errorf("Count = %d, want 1", sheet.Count())
	}
}

func TestAnswerSheet_ToWireDefinitionOrder(t *testing.T) {
	sheet := NewAnswerSheet(sampleExam(), nil)

	if err := sheet.SetText(4, "text"); err != nil {
		t.Fatalf("SetText failed: %v", err)
	}
	if err := sheet.Select(1, "A"); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if err := sheet.Toggle(2, "D"); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}

	wire := sheet.ToWire()
	if len(wire) != 3 {
		t.Fatalf("ToWire len = %d, want 3", len(wire))
	}
	wantIDs := []uint{1, 2, 4}
	for i, want := range wantIDs {
		if wire[i].QuestionID != want {
			t.Errorf("wire[%d].QuestionID = %d, want %d", i, wire[i].QuestionID, want)
		}
	}
}

func TestCanonicalChoiceString(t *testing.T) {
	cases := map[string]string{
		"C,A,B": "A,B,C",
		"A":     "A",
		"B,B,A": "A,B",
		"":      "",
	}
	for in, want := range cases {
		if got := CanonicalChoiceString(in); got != want {
			t.Errorf("CanonicalChoiceString(%q) = %q, want %q", in, got, want)
		}
	}
}
