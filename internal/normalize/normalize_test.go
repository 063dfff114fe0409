package normalize

import "testing"

func TestNormalize_CollapsesAndLowercases(t *testing.T) {
	got := Normalize("  Hangi   İŞARET\t dur anlamına gelir?!  ")
	want := "hangi işaret dur anlamına gelir?"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestNormalize_KeepsQuestionMarkDropsPunctuation(t *testing.T) {
	got := Normalize("Aşağıdakilerden hangisi, (doğrudur)?")
	if got != "aşağıdakilerden hangisi doğrudur?" {
		t.Fatalf("unexpected: %q", got)
	}
	if Normalize("işaret'i") != "işareti" {
		t.Fatalf("apostrophe should be removed, got %q", Normalize("işaret'i"))
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	in := "Kırmızı ışık - DUR!"
	if Normalize(in) != Normalize(in) {
		t.Fatalf("normalize must be deterministic")
	}
	if Normalize("") != "" {
		t.Fatalf("empty in, empty out")
	}
}

func TestFold_StripsTurkishDiacritics(t *testing.T) {
	got := Fold("Şoför IŞIĞI gördüğünde çıkar")
	want := "sofor isigi gordugunde cikar"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestFirstWord(t *testing.T) {
	if w := FirstWord("  Trafik işareti nedir?"); w != "trafik" {
		t.Fatalf("first word: %q", w)
	}
	if w := FirstWord("Dur!"); w != "dur" {
		t.Fatalf("single word: %q", w)
	}
}
