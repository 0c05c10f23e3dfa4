package keyspace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	return NewStore(4)
}

func TestStore_SetGetDel(t *testing.T) {
	s := newTestStore()

	ok, err := s.Set("k", []byte("v"), SetOpts{})
	require.NoError(t, err)
	assert.True(t, ok)

	v, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	assert.Equal(t, 1, s.Del("k"))

	_, err = s.Get("k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SetNXXX(t *testing.T) {
	s := newTestStore()

	ok, err := s.Set("k", []byte("v1"), SetOpts{OnlyIfAbs: true})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Set("k", []byte("v2"), SetOpts{OnlyIfAbs: true})
	require.NoError(t, err)
	assert.False(t, ok, "NX must refuse to overwrite an existing key")

	ok, err = s.Set("missing", []byte("v"), SetOpts{OnlyIfPres: true})
	require.NoError(t, err)
	assert.False(t, ok, "XX must refuse to create an absent key")
}

func TestStore_ExpireAndTTL(t *testing.T) {
	s := newTestStore()
	_, err := s.Set("k", []byte("v"), SetOpts{})
	require.NoError(t, err)

	assert.Equal(t, int64(-1), s.TTL("k"), "no TTL set yet")
	assert.Equal(t, int64(-2), s.TTL("missing"))

	require.True(t, s.Expire("k", 10*time.Second))
	ttl := s.TTL("k")
	assert.GreaterOrEqual(t, ttl, int64(0))
	assert.LessOrEqual(t, ttl, int64(10))

	require.True(t, s.Persist("k"))
	assert.Equal(t, int64(-1), s.TTL("k"))
}

func TestStore_ExpiredKeyIsAbsent(t *testing.T) {
	s := newTestStore()
	frozen := time.Now()
	s.now = func() time.Time { return frozen }

	_, err := s.Set("k", []byte("v"), SetOpts{TTL: time.Second})
	require.NoError(t, err)

	s.now = func() time.Time { return frozen.Add(2 * time.Second) }

	_, err = s.Get("k")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, s.Exists("k"))
}

func TestStore_IncrBy(t *testing.T) {
	s := newTestStore()

	n, err := s.IncrBy("counter", 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = s.IncrBy("counter", 9)
	require.NoError(t, err)
	assert.EqualValues(t, 10, n)

	_, err = s.Set("str", []byte("not-a-number"), SetOpts{})
	require.NoError(t, err)
	_, err = s.IncrBy("str", 1)
	assert.ErrorIs(t, err, ErrNotInteger)
}

func TestStore_IncrByOverflow(t *testing.T) {
	s := newTestStore()
	_, err := s.Set("k", []byte("9223372036854775807"), SetOpts{})
	require.NoError(t, err)
	_, err = s.IncrBy("k", 1)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestStore_WrongType(t *testing.T) {
	s := newTestStore()
	_, err := s.Set("k", []byte("v"), SetOpts{})
	require.NoError(t, err)

	_, err = s.Push("k", Left, []byte("x"))
	assert.ErrorIs(t, err, ErrWrongType)

	v, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v, "a failed WRONGTYPE command must not mutate the key")
}

func TestStore_ListPushPop(t *testing.T) {
	s := newTestStore()

	n, err := s.Push("list", Left, []byte("a"), []byte("b"), []byte("c"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	vals, err := s.LRange("list", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("c"), []byte("b"), []byte("a")}, vals)

	s2 := newTestStore()
	_, err = s2.Push("list", Right, []byte("a"), []byte("b"), []byte("c"))
	require.NoError(t, err)
	vals, err = s2.LRange("list", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, vals)
}

func TestStore_ListPopEmptiesAndDeletesKey(t *testing.T) {
	s := newTestStore()
	_, err := s.Push("list", Right, []byte("only"))
	require.NoError(t, err)

	popped, ok, err := s.Pop("list", Left, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, [][]byte{[]byte("only")}, popped)

	assert.Equal(t, 0, s.Exists("list"), "an emptied list must be deleted")
}

func TestStore_HSetHGet(t *testing.T) {
	s := newTestStore()

	added, err := s.HSet("h", map[string][]byte{"f1": []byte("v1")})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	added, err = s.HSet("h", map[string][]byte{"f1": []byte("v1-updated"), "f2": []byte("v2")})
	require.NoError(t, err)
	assert.Equal(t, 1, added, "only f2 is new")

	v, found, err := s.HGet("h", "f1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v1-updated"), v)
}

func TestStore_HDelEmptiesAndDeletesKey(t *testing.T) {
	s := newTestStore()
	_, err := s.HSet("h", map[string][]byte{"f": []byte("v")})
	require.NoError(t, err)

	removed, err := s.HDel("h", "f")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, s.Exists("h"))
}

func TestStore_CAS(t *testing.T) {
	s := newTestStore()

	ok, err := s.CAS("k", false, nil, []byte("v1"))
	require.NoError(t, err)
	assert.True(t, ok, "CAS against absent key with expected-absent should succeed")

	ok, err = s.CAS("k", true, []byte("wrong"), []byte("v2"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.CAS("k", true, []byte("v1"), []byte("v2"))
	require.NoError(t, err)
	assert.True(t, ok)

	v, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), v)
}

func TestStore_MGetMSet(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.MSet(map[string][]byte{"a": []byte("1"), "b": []byte("2")}))

	got := s.MGet("a", "b", "missing")
	assert.Equal(t, [][]byte{[]byte("1"), []byte("2"), nil}, got)
}

func TestStore_KeysGlob(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.MSet(map[string][]byte{"foo": []byte("1"), "fob": []byte("2"), "bar": []byte("3")}))

	matches := s.Keys([]byte("fo?"))
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = string(m)
	}
	assert.ElementsMatch(t, []string{"foo", "fob"}, names)
}

func TestStore_ScanPaginatesAllKeys(t *testing.T) {
	s := newTestStore()
	pairs := make(map[string][]byte)
	for i := 0; i < 25; i++ {
		pairs[string(rune('a'+i))] = []byte("v")
	}
	require.NoError(t, s.MSet(pairs))

	seen := make(map[string]bool)
	cursor := uint64(0)
	for {
		res := s.Scan(cursor, nil, 10)
		for _, k := range res.Keys {
			seen[string(k)] = true
		}
		cursor = res.NextCursor
		if cursor == 0 {
			break
		}
	}
	assert.Len(t, seen, 25)
}

func TestStore_RenameNX(t *testing.T) {
	s := newTestStore()
	_, err := s.Set("src", []byte("v"), SetOpts{})
	require.NoError(t, err)
	_, err = s.Set("dst", []byte("existing"), SetOpts{})
	require.NoError(t, err)

	err = s.Rename("src", "dst", true)
	assert.ErrorIs(t, err, ErrKeyExistsAtDest)

	require.NoError(t, s.Rename("src", "dst", false))
	v, err := s.Get("dst")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
	assert.Equal(t, 0, s.Exists("src"))
}

func TestStore_AppendAndStrLen(t *testing.T) {
	s := newTestStore()
	n, err := s.Append("k", []byte("Hello "))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	n, err = s.Append("k", []byte("World"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)

	l, err := s.StrLen("k")
	require.NoError(t, err)
	assert.Equal(t, 11, l)
}

func TestStore_DBSizeAndFlushAll(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.MSet(map[string][]byte{"a": []byte("1"), "b": []byte("2")}))
	assert.Equal(t, 2, s.DBSize())

	s.FlushAll()
	assert.Equal(t, 0, s.DBSize())
}

func TestStore_JSONPatch(t *testing.T) {
	s := newTestStore()
	_, err := s.Set("doc", []byte(`{"a":1}`), SetOpts{})
	require.NoError(t, err)

	result, err := s.JSONPatch("doc", []byte(`[{"op":"add","path":"/b","value":2}]`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1,"b":2}`, string(result))
}

func TestStore_TypeAndObjectEncoding(t *testing.T) {
	s := newTestStore()
	_, err := s.Set("str", []byte("v"), SetOpts{})
	require.NoError(t, err)
	_, err = s.Push("list", Left, []byte("v"))
	require.NoError(t, err)
	_, err = s.HSet("hash", map[string][]byte{"f": []byte("v")})
	require.NoError(t, err)

	assert.Equal(t, "string", s.Type("str"))
	assert.Equal(t, "list", s.Type("list"))
	assert.Equal(t, "hash", s.Type("hash"))
	assert.Equal(t, "none", s.Type("missing"))

	enc, ok := s.ObjectEncoding("str")
	require.True(t, ok)
	assert.Equal(t, "raw", enc)
}

func TestStore_StaleTimestampIsPreservedNotHidden(t *testing.T) {
	s := newTestStore()
	frozen := time.Now()
	s.now = func() time.Time { return frozen }

	_, err := s.Set("k", []byte("v1"), SetOpts{})
	require.NoError(t, err)

	_, err = s.Set("k", []byte("v2"), SetOpts{})
	assert.ErrorIs(t, err, ErrStaleTimestamp, "a write at the same instant as the prior one must fail, not silently succeed")
}
