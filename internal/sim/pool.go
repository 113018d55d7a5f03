package sim

import (
	"sync"

	"github.com/san-kum/polychain/internal/dynamo"
)

type StatePool struct {
	pool sync.Pool
	size int
}

func NewStatePool(stateSize int) *StatePool {
	return &StatePool{
		size: stateSize,
		pool: sync.Pool{
			New: func() interface{} {
				return make(dynamo.State, stateSize)
			},
		},
	}
}

func (p *StatePool) Size() int { return p.size }

func (p *StatePool) Get() dynamo.State {
	return p.pool.Get().(dynamo.State)
}

func (p *StatePool) Put(s dynamo.State) {
	if len(s) == p.size {
		s.Zero()
		p.pool.Put(s)
	}
}

func (p *StatePool) GetAndCopy(src dynamo.State) dynamo.State {
	dst := p.Get()
	copy(dst, src)
	return dst
}
