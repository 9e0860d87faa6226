package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrom(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain_ascii", "Solo Leveling", "solo-leveling"},
		{"vietnamese_diacritics", "Quỷ Bí Chi Chủ", "quy-bi-chi-chu"},
		{"d_stroke", "Đấu Phá Thương Khung", "dau-pha-thuong-khung"},
		{"mixed_punctuation", "Ma Đạo: Tổ Sư (bản dịch)", "ma-dao-to-su-ban-dich"},
		{"collapses_runs", "a   --  b", "a-b"},
		{"trims_edges", "  ~Tiên Nghịch~  ", "tien-nghich"},
		{"digits_kept", "Vol 2 Chương 10", "vol-2-chuong-10"},
		{"empty", "", ""},
		{"only_symbols", "!!! ***", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, From(tt.in))
		})
	}
}
