package hashtable

import "fmt"
import "strconv"
import "sync"
import "testing"

func fill(t *testing.T, ht *Hashtable_t, n int) {
	for i := 0; i < n; i++ {
		k := int32(i)
		ht.Set(k, i)
		v, ok := ht.Get(k)
		if !ok {
			t.Fatalf("%v key", k)
		}
		if v != i {
			t.Fatalf("%v val", k)
		}
	}
}

const SZ = 10

func TestSimple(t *testing.T) {
	ht := MkHash(SZ)

	fill(t, ht, 3*SZ)
	for i := 1; i < 3*SZ; i++ {
		k0 := int32(0)
		k := int32(i)
		ht.Del(k)
		v, ok := ht.Get(k0)
		if !ok {
			t.Fatalf("%v key", k0)
		}
		if v != 0 {
			t.Fatalf("%v val", k0)
		}
		if _, ok = ht.Get(k); ok {
			t.Fatalf("%v key survived del", k)
		}
	}
}

func TestDelMissing(t *testing.T) {
	ht := MkHash(SZ)
	fill(t, ht, SZ)
	// deleting a key that was never inserted must not disturb the rest
	ht.Del(int32(1000))
	for i := 0; i < SZ; i++ {
		if _, ok := ht.Get(int32(i)); !ok {
			t.Fatalf("%v key lost", i)
		}
	}
}

func TestStringKeys(t *testing.T) {
	ht := MkHash(SZ)
	for i := 0; i < 3*SZ; i++ {
		ht.Set(strconv.Itoa(i), i)
	}
	for i := 0; i < 3*SZ; i++ {
		v, ok := ht.Get(strconv.Itoa(i))
		if !ok || v != i {
			t.Fatalf("%v", i)
		}
	}
}

const NPROC = 4

func TestConcurrent(t *testing.T) {
	ht := MkHash(SZ)
	var wg sync.WaitGroup
	for p := 0; p < NPROC; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				k := int32(p*1000 + i)
				ht.Set(k, p)
				v, ok := ht.Get(k)
				if !ok || v != p {
					t.Errorf("%v missing", k)
					return
				}
				ht.Del(k)
			}
		}(p)
	}
	wg.Wait()
	n := 0
	ht.Iter(func(k, v interface{}) bool {
		n++
		return true
	})
	if n != 0 {
		t.Fatalf("%v elems left", n)
	}
	fmt.Printf("Pass TestConcurrent\n")
}
