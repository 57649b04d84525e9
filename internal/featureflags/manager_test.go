package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, m.On(name), name)
	}
	for _, name := range []string{"b", "d", "f", "missing"} {
		assert.False(t, m.On(name), name)
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,junk=abc%")

	assert.True(t, m.Enabled("always", "u1"))
	assert.False(t, m.Enabled("never", "u1"))
	assert.False(t, m.Enabled("junk", "u1"))

	first := m.Enabled("canary", "u42")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", "u42"), "rollout evaluation must be deterministic per subject")
	}
	assert.False(t, m.Enabled("canary", ""), "percentage rollout requires a subject")

	enabled := 0
	for i := 0; i < 400; i++ {
		if m.Enabled("canary", "user-"+string(rune('a'+i%26))+string(rune('a'+i/26))) {
			enabled++
		}
	}
	assert.Greater(t, enabled, 0)
	assert.Less(t, enabled, 400)
}

func TestDefaults(t *testing.T) {
	m := NewManager("")
	assert.True(t, m.On(PersistSession))
	assert.False(t, m.On(SignInClearsLoading))

	m = NewManager("persist_session=off, SIGNIN_CLEARS_LOADING = on")
	assert.False(t, m.On(PersistSession))
	assert.True(t, m.On(SignInClearsLoading))

	var nilManager *Manager
	assert.False(t, nilManager.On(PersistSession))
}

func TestParseAndSnapshot(t *testing.T) {
	m := NewManager(" bad ,x=on, y = 20% ,z=off, =on, w= ")

	raw := m.Raw()
	assert.Len(t, raw, 3+len(defaults))
	assert.Equal(t, "on", raw["x"])
	assert.Equal(t, "20%", raw["y"])
	assert.Equal(t, "off", raw["z"])

	assert.Len(t, m.Snapshot("123"), len(raw))
	assert.Equal(t, []string{PersistSession, SignInClearsLoading, "x", "y", "z"}, m.Names())
}
