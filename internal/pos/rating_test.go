package pos

import "testing"

func TestNewRating(t *testing.T) {
	long := make([]rune, maxCommentLen+1)
	for i := range long {
		long[i] = 'ñ'
	}
	tests := []struct {
		name    string
		itemID  string
		score   int
		comment string
		wantErr bool
	}{
		{"valid", "croquetas", 5, "  crujientes ", false},
		{"lowest score", "croquetas", MinScore, "", false},
		{"zero score", "croquetas", 0, "", true},
		{"score above five", "croquetas", 6, "", true},
		{"missing dish", " ", 3, "", true},
		{"comment too long", "croquetas", 3, string(long), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRating("r-1", tt.itemID, tt.score, tt.comment, testNow)
			if tt.wantErr {
				if !IsValidation(err) {
					t.Fatalf("NewRating error = %v, want validation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewRating: %v", err)
			}
			if r.Comment != "crujientes" && r.Comment != "" {
				t.Errorf("comment = %q, want trimmed", r.Comment)
			}
		})
	}
}

func TestSummarizeRatings(t *testing.T) {
	tests := []struct {
		name   string
		scores []int
		count  int
		want   string
	}{
		{"none", nil, 0, "0"},
		{"single", []int{4}, 1, "4"},
		{"repeating average", []int{5, 4, 4}, 3, "4.33"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ratings []*Rating
			for _, s := range tt.scores {
				ratings = append(ratings, &Rating{ItemID: "croquetas", Score: s})
			}
			got := SummarizeRatings(ratings)
			if got.Count != tt.count || !got.Average.Equal(d(tt.want)) {
				t.Fatalf("SummarizeRatings = %d / %s, want %d / %s", got.Count, got.Average, tt.count, tt.want)
			}
		})
	}
}
