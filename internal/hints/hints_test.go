package hints

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingAdvisor struct {
	calls []string
	err   error
}

func (r *recordingAdvisor) Fadvise(fd uintptr, offset, length int64, advice Advice) error {
	r.calls = append(r.calls, "fadvise:"+advice.String())
	return r.err
}

func (r *recordingAdvisor) Madvise(b []byte, advice Advice) error {
	r.calls = append(r.calls, "madvise:"+advice.String())
	return r.err
}

func (r *recordingAdvisor) Readahead(fd uintptr, offset, length int64) error {
	r.calls = append(r.calls, "readahead")
	return r.err
}

func (r *recordingAdvisor) RaiseIOPriority() error {
	r.calls = append(r.calls, "ioprio")
	return r.err
}

func TestApplyFile_CallsConfiguredHints(t *testing.T) {
	adv := &recordingAdvisor{}
	a := NewApplierWithAdvisor(adv, Options{AdviseSequential: true, ReadAhead: true, IOPriority: true})

	failed := a.ApplyFile(3, 4096)

	assert.Equal(t, 0, failed)
	assert.Equal(t, []string{"fadvise:sequential", "readahead", "ioprio"}, adv.calls)
}

func TestApplyFile_NoHintsNoCalls(t *testing.T) {
	adv := &recordingAdvisor{}
	a := NewApplierWithAdvisor(adv, Options{})

	assert.Equal(t, 0, a.ApplyFile(3, 4096))
	assert.Empty(t, adv.calls)
}

func TestApplyMapping_WillNeed(t *testing.T) {
	adv := &recordingAdvisor{}
	a := NewApplierWithAdvisor(adv, Options{AdviseWillNeed: true})

	a.ApplyMapping(3, make([]byte, 16))
	assert.Equal(t, []string{"madvise:willneed"}, adv.calls)

	// empty mappings are skipped
	adv.calls = nil
	a.ApplyMapping(3, nil)
	assert.Empty(t, adv.calls)
}

func TestApplyMapping_ReadAheadUsesDescriptor(t *testing.T) {
	adv := &recordingAdvisor{}
	a := NewApplierWithAdvisor(adv, Options{AdviseSequential: true, ReadAhead: true})

	assert.Equal(t, 0, a.ApplyMapping(3, make([]byte, 16)))
	assert.Equal(t, []string{"madvise:sequential", "readahead"}, adv.calls)
}

func TestApplyProcess_OnlyIOPriority(t *testing.T) {
	adv := &recordingAdvisor{}
	a := NewApplierWithAdvisor(adv, Options{AdviseSequential: true, ReadAhead: true, IOPriority: true})

	assert.Equal(t, 0, a.ApplyProcess())
	assert.Equal(t, []string{"ioprio"}, adv.calls)

	adv.calls = nil
	assert.Equal(t, 0, NewApplierWithAdvisor(adv, Options{ReadAhead: true}).ApplyProcess())
	assert.Empty(t, adv.calls)
}

func TestApply_FailuresAreCountedNotPropagated(t *testing.T) {
	adv := &recordingAdvisor{err: errors.New("EINVAL")}
	a := NewApplierWithAdvisor(adv, Options{AdviseWillNeed: true, ReadAhead: true, IOPriority: true})

	assert.Equal(t, 3, a.ApplyFile(3, 100))
}

func TestNoopAdvisor(t *testing.T) {
	a := NewApplierWithAdvisor(nil, Options{AdviseSequential: true, IOPriority: true})
	assert.Equal(t, 2, a.ApplyFile(3, 10))
	assert.ErrorIs(t, NoopAdvisor{}.RaiseIOPriority(), ErrUnsupported)
}
