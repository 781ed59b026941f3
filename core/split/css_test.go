package split_test

import (
	"errors"
	"testing"

	"github.com/YoungY620/mrequires/core/split"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func url(v string) split.Segment { return split.URL(v) }

func TestCSS(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  []split.Segment
	}{
		{"source only", "blah blah", []split.Segment{src("blah blah")}},
		{"url only", "url('img/foo.jpg')", []split.Segment{url("img/foo.jpg")}},
		{"double quotes", `url("img/foo.jpg")`, []split.Segment{url("img/foo.jpg")}},
		{"without quotes", "url(img/foo.jpg)", []split.Segment{url("img/foo.jpg")}},
		{"without quotes spaced", "url(  img/foo.jpg \t  )", []split.Segment{url("img/foo.jpg")}},
		{"empty source", "", nil},
		{
			"source and url intermixed",
			"#nav a:link {\n" +
				"  background: url( 'img/bg.gif' ) no-repeat;\n" +
				"}\n" +
				"#nav a:hover {\n" +
				"  background-image: url( img/hover.png );\n" +
				"}\n",
			[]split.Segment{
				src("#nav a:link {\n  background: "),
				url("img/bg.gif"),
				src(" no-repeat;\n}\n#nav a:hover {\n  background-image: "),
				url("img/hover.png"),
				src(";\n}\n"),
			},
		},
		{
			"url inside comment is still matched",
			"/* url(a.png) */",
			[]split.Segment{src("/* "), url("a.png"), src(" */")},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := split.CSS(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCSS_Malformed(t *testing.T) {
	_, err := split.CSS("a { b: url(x.png) } c { d: url(y.png }")
	var malformed *split.MalformedDirectiveError
	require.True(t, errors.As(err, &malformed), "got %v", err)
	assert.Equal(t, "url(", malformed.Directive)
	assert.Equal(t, 27, malformed.Offset)
}
