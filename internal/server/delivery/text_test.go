package delivery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextToHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"already html", "<p>a</p>", "<p>a</p>"},
		{"newlines", "a\nb\r\nc", "a<br>b<br>c"},
		{"markup", "**b** *i* __u__ ~~s~~", "<strong>b</strong> <em>i</em> <u>u</u> <del>s</del>"},
		{"escapes", "1 < 2 & 3", "1 &lt; 2 &amp; 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TextToHTML(tt.in))
		})
	}
}

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"tags stripped", "<p>Hello <b>there</b></p>", "Hello there"},
		{"entities", "a &amp; b&nbsp;c", "a & b c"},
		{"script and style", "<style>p{}</style>x<script>alert(1)</script>y", "xy"},
		{"blank lines collapse", "<p>one</p>\n\n\n<p>two</p><br><br>three", "one\ntwo\nthree"},
		{"cid image", `<img src="cid:inline-image-0@webmail.local">caption`, "caption"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTMLToText(tt.in))
		})
	}
}
