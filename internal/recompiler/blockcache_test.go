package recompiler

import (
	"errors"
	"testing"
)

func TestBlockCacheFindRegisterUnregister(t *testing.T) {
	c := newBlockCache()

	if c.find(0x1000) != nil {
		t.Errorf("expected empty cache to have no block at 0x1000")
	}

	b := &Block{PC: 0x1000}
	if err := c.register(b); err != nil {
		t.Fatalf("register: %v", err)
	}
	if got := c.find(0x1000); got != b {
		t.Errorf("find returned %+v, want %+v", got, b)
	}

	c.unregister(b)
	if c.find(0x1000) != nil {
		t.Errorf("expected block to be gone after unregister")
	}
}

func TestBlockCacheRegisterDuplicateErrors(t *testing.T) {
	c := newBlockCache()
	b1 := &Block{PC: 0x2000}
	b2 := &Block{PC: 0x2000}

	if err := c.register(b1); err != nil {
		t.Fatalf("register b1: %v", err)
	}
	err := c.register(b2)
	if err == nil {
		t.Fatalf("expected an error registering a duplicate PC")
	}
	if !errors.Is(err, ErrBlockExists) {
		t.Errorf("error %v does not wrap ErrBlockExists", err)
	}
}

func TestBlockCacheDropAll(t *testing.T) {
	c := newBlockCache()
	c.register(&Block{PC: 1})
	c.register(&Block{PC: 2})
	c.register(&Block{PC: 3})

	dropped := c.dropAll()
	if len(dropped) != 3 {
		t.Errorf("dropAll returned %d blocks, want 3", len(dropped))
	}
	if c.find(1) != nil || c.find(2) != nil || c.find(3) != nil {
		t.Errorf("expected cache to be empty after dropAll")
	}
}
