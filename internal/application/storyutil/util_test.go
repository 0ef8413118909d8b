package storyutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `[{"a":1}]`, `[{"a":1}]`},
		{"plain fence", "```\n[1,2]\n```", "[1,2]"},
		{"json fence", "```json\n[1,2]\n```", "[1,2]"},
		{"fence with whitespace", "  ```json\n[1,2]\n```  ", "[1,2]"},
		{"empty", "", ""},
		{"fence only", "```\n```", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, StripCodeFences(tc.in), tc.name)
	}
}

func TestTruncateByRunes(t *testing.T) {
	require.Equal(t, "abc", TruncateByRunes("abc", 10))
	require.Equal(t, "ab", TruncateByRunes("abcd", 2))
	require.Equal(t, "", TruncateByRunes("abc", 0))
	// 多字节字符按 rune 计数，不截断到半个字符
	require.Equal(t, "恶魔", TruncateByRunes("恶魔视角", 2))

	long := strings.Repeat("x", 2000)
	require.Len(t, TruncateByRunes(long, 1500), 1500)
}

func TestFirstTag(t *testing.T) {
	require.Equal(t, "@Vex", FirstTag([]string{"@Vex", "@Other"}))
	require.Equal(t, "@Vex", FirstTag([]string{"  ", "@Vex"}))
	require.Equal(t, "", FirstTag(nil))
	require.Equal(t, "", FirstTag([]string{"", "  "}))
}
