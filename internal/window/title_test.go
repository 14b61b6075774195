package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"ascii", "PokeMMO", "pokemmo"},
		{"cyrillic o and e", "Pоkеmmо", "pokemmo"},
		{"all capitals cyrillic", "РОКЕММО", "pokemmo"},
		{"capital ve and en", "ВНОР", "bhop"},
		{"lowercase ve and en kept", "вн", "вн"},
		{"whitespace", "  PokeMMO ", "pokemmo"},
		{"unrelated", "Terminal", "terminal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTitle(tt.title))
		})
	}
}

func TestMatcher(t *testing.T) {
	m := Matcher{Title: "pokemmo"}

	assert.True(t, m.Match("PokeMMO"))
	assert.True(t, m.Match("Рокеммо"))
	assert.False(t, m.Match("PokeMMO Companion"))
	assert.False(t, Matcher{Title: "bh"}.Match("вн"))
	assert.True(t, Matcher{Title: "bh"}.Match("ВН"))
	assert.False(t, m.Match(""))

	assert.False(t, Matcher{}.Match(""))
}

func TestFind(t *testing.T) {
	windows := []*Info{
		{ID: 1, Title: "PokeMMO", Visible: false},
		{ID: 2, Title: "Editor", Visible: true},
		{ID: 3, Title: "Pоkеmmо", Visible: true},
	}

	got := Find(windows, Matcher{Title: "pokemmo"})
	if assert.NotNil(t, got) {
		assert.Equal(t, uint64(3), got.ID)
	}

	assert.Nil(t, Find(windows, Matcher{Title: "browser"}))
}
