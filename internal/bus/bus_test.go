package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishRoutesByKey(t *testing.T) {
	b := New[string]()
	var about, all []string
	b.Subscribe("about", func(v string) { about = append(about, v) })
	b.SubscribeAll(func(v string) { all = append(all, v) })

	b.Publish("about", "a1")
	b.Publish("skills", "s1")

	assert.Equal(t, []string{"a1"}, about)
	assert.Equal(t, []string{"a1", "s1"}, all)
}

func TestCancelIsSymmetricAndIdempotent(t *testing.T) {
	b := New[int]()
	calls := 0
	cancel := b.Subscribe("k", func(int) { calls++ })
	assert.Equal(t, 1, b.Len())

	b.Publish("k", 1)
	cancel()
	cancel()
	b.Publish("k", 2)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, b.Len())
}

func TestHandlerMayCancelDuringPublish(t *testing.T) {
	b := New[int]()
	var cancel func()
	got := 0
	cancel = b.Subscribe("k", func(int) {
		got++
		cancel()
	})
	b.Publish("k", 1)
	b.Publish("k", 2)
	assert.Equal(t, 1, got)
}
