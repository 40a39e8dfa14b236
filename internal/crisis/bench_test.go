package crisis

import "testing"

func BenchmarkAssess_NoMatch(b *testing.B) {
	a := NewDefaultAssessor()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a.Assess("Hôm nay mình đi học về và làm bài tập")
	}
}

func BenchmarkAssess_Critical(b *testing.B) {
	a := NewDefaultAssessor()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a.Assess("Mình đã chuẩn bị để kết thúc tất cả")
	}
}
