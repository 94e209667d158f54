package mem

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ip-query/internal/geo"
)

func res(ip string) geo.Result {
	return geo.OK(&geo.Info{IP: ip, Country: "中国", ISP: "电信"})
}

func TestGetSetRoundTrip(t *testing.T) {
	c := New(10, time.Minute)
	ctx := context.Background()

	_, ok := c.Get(ctx, "8.8.8.8")
	assert.False(t, ok)

	c.Set(ctx, "8.8.8.8", res("8.8.8.8"))
	got, ok := c.Get(ctx, "8.8.8.8")
	require.True(t, ok)
	assert.Equal(t, 200, got.Ret)
	assert.Equal(t, "8.8.8.8", got.Data.IP)
}

func TestExpiredEntryIsAbsent(t *testing.T) {
	c := New(10, 30*time.Millisecond)
	ctx := context.Background()
	c.Set(ctx, "8.8.8.8", res("8.8.8.8"))

	time.Sleep(50 * time.Millisecond)
	_, ok := c.Get(ctx, "8.8.8.8")
	assert.False(t, ok)
	// 读取触发就地回收
	assert.Equal(t, 0, c.Len())
}

func TestCapacityEvictsOldest(t *testing.T) {
	c := New(3, time.Minute)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		c.Set(ctx, fmt.Sprintf("1.1.1.%d", i), res("x"))
	}
	// 访问 1.1.1.0 将其刷新为最近使用
	_, ok := c.Get(ctx, "1.1.1.0")
	require.True(t, ok)

	c.Set(ctx, "2.2.2.2", res("y"))
	assert.Equal(t, 3, c.Len())
	_, ok = c.Get(ctx, "1.1.1.1") // 最久未使用者被淘汰
	assert.False(t, ok)
	_, ok = c.Get(ctx, "1.1.1.0")
	assert.True(t, ok)
}

func TestSetUpdatesExisting(t *testing.T) {
	c := New(10, time.Minute)
	ctx := context.Background()
	c.Set(ctx, "8.8.8.8", res("old"))
	c.Set(ctx, "8.8.8.8", res("new"))
	got, ok := c.Get(ctx, "8.8.8.8")
	require.True(t, ok)
	assert.Equal(t, "new", got.Data.IP)
	assert.Equal(t, 1, c.Len())
}

func TestSweepReclaimsExpired(t *testing.T) {
	c := New(10, 30*time.Millisecond)
	ctx := context.Background()
	c.Set(ctx, "a", res("a"))
	c.Set(ctx, "b", res("b"))
	time.Sleep(50 * time.Millisecond)
	c.Set(ctx, "c", res("c"))

	assert.Equal(t, 2, c.Sweep())
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get(ctx, "c")
	assert.True(t, ok)
}
