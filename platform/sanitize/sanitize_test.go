package sanitize

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Jane   Doe ", "Jane Doe"},
		{"<b>Piano</b>", "Piano"},
		{"&lt;script&gt;alert(1)&lt;/script&gt;Sofa", "alert(1)Sofa"},
		{"123 Main St,\n Austin", "123 Main St, Austin"},
	}
	for _, tt := range tests {
		if got := Text(tt.in); got != tt.want {
			t.Fatalf("Text(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTextSliceDropsEmpty(t *testing.T) {
	got := TextSlice([]string{"piano", "  ", "<i></i>", "safe"})
	if len(got) != 2 || got[0] != "piano" || got[1] != "safe" {
		t.Fatalf("unexpected result %v", got)
	}
}
