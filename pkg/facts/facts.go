// Package facts renders a short host summary (kernel, CPUs, memory, uptime, process count)
// behind an exclusive-open handle with a field mask.
package facts

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"emperror.dev/errors"
	"github.com/c2h5oh/datasize"
)

const (
	// ErrBusy is returned by Open while another reader holds the provider.
	ErrBusy = errors.Sentinel("facts provider is busy")
	// ErrInvalidMask is returned by Write for masks outside [0, AllFields].
	ErrInvalidMask = errors.Sentinel("invalid facts mask")
)

// Field bits select the lines of the banner.
const (
	FieldRelease = 1 << iota
	FieldCPUs
	FieldCPUModel
	FieldMemory
	FieldUptime
	FieldProcs

	AllFields = FieldRelease | FieldCPUs | FieldCPUModel | FieldMemory | FieldUptime | FieldProcs
)

// Facts is one reading of the host.
type Facts struct {
	Hostname      string
	KernelRelease string
	CPUModel      string
	LogicalCPUs   int
	PhysicalCPUs  int
	MemAvailable  uint64
	MemTotal      uint64
	Uptime        time.Duration
	Processes     uint64
}

// Gatherer reads the current host facts.
type Gatherer func(ctx context.Context) (Facts, error)

// Provider hands out host facts to one reader at a time.
type Provider struct {
	busy   atomic.Bool
	mu     sync.Mutex
	mask   int
	gather Gatherer
}

// NewProvider returns a provider using gather, or the system gatherer when gather is nil.
func NewProvider(gather Gatherer, mask int) (*Provider, error) {
	if gather == nil {
		gather = Gather
	}
	p := &Provider{gather: gather}
	if err := p.Write(mask); err != nil {
		return nil, err
	}
	return p, nil
}

// Open claims the provider. It fails with ErrBusy while another reader holds it.
func (p *Provider) Open() error {
	if !p.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	return nil
}

// Release gives the provider back.
func (p *Provider) Release() {
	p.busy.Store(false)
}

// Write replaces the field mask. Invalid masks leave the current one untouched.
func (p *Provider) Write(mask int) error {
	if mask < 0 || mask > AllFields {
		return errors.WithDetails(ErrInvalidMask, "mask", mask)
	}
	p.mu.Lock()
	p.mask = mask
	p.mu.Unlock()
	return nil
}

// Mask returns the current field mask.
func (p *Provider) Mask() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mask
}

// Read gathers fresh facts and renders them with the current mask.
func (p *Provider) Read(ctx context.Context) (string, error) {
	f, err := p.gather(ctx)
	if err != nil {
		return "", errors.WrapIf(err, "gathering host facts")
	}
	return Render(f, p.Mask()), nil
}

// Render formats f as a banner headed by the hostname. Mask 0 selects every field.
func Render(f Facts, mask int) string {
	if mask == 0 {
		mask = AllFields
	}
	var b strings.Builder
	b.WriteString(f.Hostname + "\n")
	b.WriteString(strings.Repeat("-", len(f.Hostname)) + "\n")

	line := func(label, value string) {
		fmt.Fprintf(&b, "%-8s %s\n", label+":", value)
	}
	if mask&FieldRelease != 0 {
		line("Kernel", f.KernelRelease)
	}
	if mask&FieldCPUModel != 0 {
		line("CPU", f.CPUModel)
	}
	if mask&FieldCPUs != 0 {
		line("CPUs", fmt.Sprintf("%d / %d", f.LogicalCPUs, f.PhysicalCPUs))
	}
	if mask&FieldMemory != 0 {
		line("Mem", fmt.Sprintf("%s / %s", datasize.ByteSize(f.MemAvailable).HR(), datasize.ByteSize(f.MemTotal).HR()))
	}
	if mask&FieldProcs != 0 {
		line("Procs", fmt.Sprintf("%d", f.Processes))
	}
	if mask&FieldUptime != 0 {
		line("Uptime", fmt.Sprintf("%d mins", int(f.Uptime/time.Minute)))
	}
	return b.String()
}
