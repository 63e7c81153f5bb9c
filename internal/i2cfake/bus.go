// Package i2cfake is an in-memory i2c.Bus for driver tests.
package i2cfake

import (
	"errors"
	"sync"

	"github.com/reef-pi/rpi/i2c"
)

// ErrInjected is returned by a Bus whose Fail field is set.
var ErrInjected = errors.New("i2cfake: injected bus failure")

// Write is one recorded transaction.
type Write struct {
	Addr byte
	Reg  int // -1 for register-less writes
	Data []byte
}

// Bus records every write. Register writes are also stored in Regs so that
// register reads return the last value written; ReadBytes returns Port.
type Bus struct {
	mu sync.Mutex

	Writes []Write
	Regs   map[byte][]byte
	Port   []byte

	// Fail makes every call return ErrInjected once it reaches zero;
	// FailAfter counts down successful calls first.
	Fail      bool
	FailAfter int
}

var _ i2c.Bus = (*Bus)(nil)

func New() *Bus {
	return &Bus{Regs: map[byte][]byte{}}
}

func (b *Bus) failing() bool {
	if !b.Fail {
		return false
	}
	if b.FailAfter > 0 {
		b.FailAfter--
		return false
	}
	return true
}

func (b *Bus) ReadBytes(addr byte, num int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failing() {
		return nil, ErrInjected
	}
	out := make([]byte, num)
	copy(out, b.Port)
	return out, nil
}

func (b *Bus) WriteBytes(addr byte, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failing() {
		return ErrInjected
	}
	b.Writes = append(b.Writes, Write{Addr: addr, Reg: -1, Data: append([]byte(nil), value...)})
	return nil
}

func (b *Bus) ReadFromReg(addr, reg byte, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failing() {
		return ErrInjected
	}
	copy(value, b.Regs[reg])
	return nil
}

func (b *Bus) WriteToReg(addr, reg byte, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failing() {
		return ErrInjected
	}
	data := append([]byte(nil), value...)
	b.Writes = append(b.Writes, Write{Addr: addr, Reg: int(reg), Data: data})
	b.Regs[reg] = data
	return nil
}

func (b *Bus) Close() error { return nil }

// Last returns the most recent write, or the zero Write.
func (b *Bus) Last() Write {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.Writes) == 0 {
		return Write{}
	}
	return b.Writes[len(b.Writes)-1]
}
