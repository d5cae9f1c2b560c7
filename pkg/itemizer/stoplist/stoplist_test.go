package stoplist

import "testing"

func TestManagerBasic(t *testing.T) {
	mgr, err := NewManager([]string{"the", "a", "and"})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if !mgr.IsStop("the") {
		t.Error("'the' should be a stopword")
	}
	if mgr.IsStop("hello") {
		t.Error("'hello' should not be a stopword")
	}
}

func TestManagerPatterns(t *testing.T) {
	mgr, err := NewManager([]string{"rgx:[0-9]+", "rgx:<.*>"})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	tests := []struct {
		token string
		want  bool
	}{
		{"42", true},
		{"42nd", true},
		{"x42", false},
		{"<QQQ>", true},
		{"word", false},
	}
	for _, tt := range tests {
		if got := mgr.IsStop(tt.token); got != tt.want {
			t.Errorf("IsStop(%q) = %v, want %v", tt.token, got, tt.want)
		}
	}
}

func TestManagerBadPattern(t *testing.T) {
	if _, err := NewManager([]string{"rgx:("}); err == nil {
		t.Error("Expected an error for an invalid pattern")
	}
}

func TestManagerAdd(t *testing.T) {
	mgr, _ := NewManager([]string{"the"})

	if err := mgr.Add("test"); err != nil || !mgr.IsStop("test") {
		t.Errorf("'test' should be stopword after adding, got %v", err)
	}
	if err := mgr.Add("rgx:[0-9]+"); err != nil || !mgr.IsStop("42") {
		t.Errorf("'42' should match an added pattern, got %v", err)
	}
	if err := mgr.Add("rgx:["); err == nil {
		t.Error("Expected an error for an invalid added pattern")
	}
}

func TestNilManager(t *testing.T) {
	var mgr *Manager
	if mgr.IsStop("the") {
		t.Error("Nil manager should stop nothing")
	}
}
