package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "report.pdf", want: "report.pdf"},
		{in: "My Report (final).docx", want: "My_Report_final.docx"},
		{in: "../../etc/passwd.txt", want: "etc_passwd.txt"},
		{in: `C:\Users\joao\planilha.xlsx`, want: "C_Users_joao_planilha.xlsx"},
		{in: "Relatório Técnico.pdf", want: "Relatorio_Tecnico.pdf"},
		{in: "  .hidden.txt ", want: "hidden.txt"},
		{in: "日本語", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Printer down", cleanText("  Printer down  "))
	assert.Equal(t, "hello", cleanText("<b>hello</b>"))
	assert.Equal(t, "a & b", cleanText("a & b"))
	assert.Equal(t, "", cleanText("<script>alert(1)</script>"))
	assert.Equal(t, "a<b and c>d", cleanText("a<b and c>d"))
	assert.Equal(t, "<script>", cleanText(" <script> "))
	assert.Equal(t, "if x < 3 && y > 2", cleanText("if x < 3 && y > 2"))
	assert.Equal(t, "line", cleanText("<br/>line"))
	assert.Equal(t, "note", cleanText("<!-- hidden -->note"))
}
