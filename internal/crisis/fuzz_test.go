package crisis

import "testing"

func FuzzAssess(f *testing.F) {
	a := NewDefaultAssessor()
	seeds := []string{
		"",
		"Mình không muốn sống nữa",
		"Mọi người sẽ tốt hơn nếu không có mình",
		"Hôm nay mình rất buồn vì điểm thấp",
		"MÌNH MUỐN BIẾN MẤT",
		"\xff\xfe",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, msg string) {
		got := a.Assess(msg)
		if got.Confidence < 0 || got.Confidence > 1 {
			t.Fatalf("confidence %v out of range", got.Confidence)
		}
		if got.ShouldShowHotline != (got.Level >= High) {
			t.Fatalf("hotline flag %v inconsistent with %s", got.ShouldShowHotline, got.Level)
		}
		if got.Level == None && len(got.Triggers) != 0 {
			t.Fatalf("NONE with triggers %v", got.Triggers)
		}
	})
}
