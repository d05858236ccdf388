package recompiler

import "fmt"

// blockCache is a PC-indexed directory of compiled blocks. A Go map keyed
// on guest PC gives the fast lookup dispatch needs without any extra
// indexing structure.
type blockCache struct {
	blocks map[uint32]*Block
}

func newBlockCache() *blockCache {
	return &blockCache{blocks: make(map[uint32]*Block)}
}

func (c *blockCache) find(pc uint32) *Block {
	return c.blocks[pc]
}

// register installs a block into the cache. It is an error to register a
// block whose PC is already present: the caller must unregister the stale
// entry first.
func (c *blockCache) register(b *Block) error {
	if _, exists := c.blocks[b.PC]; exists {
		return fmt.Errorf("recompiler: pc=0x%08x: %w", b.PC, ErrBlockExists)
	}
	c.blocks[b.PC] = b
	return nil
}

func (c *blockCache) unregister(b *Block) {
	delete(c.blocks, b.PC)
}

func (c *blockCache) dropAll() []*Block {
	all := make([]*Block, 0, len(c.blocks))
	for _, b := range c.blocks {
		all = append(all, b)
	}
	c.blocks = make(map[uint32]*Block)
	return all
}
