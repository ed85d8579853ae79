package slider

import (
	"errors"
	"testing"

	"github.com/itohio/goslider/pkg/mode"
	"github.com/itohio/goslider/pkg/packet"
	"github.com/itohio/goslider/pkg/smooth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const triggerKey Key = 0x27

// recorder captures every transmitted frame.
type recorder struct {
	frames [][]byte
	err    error
}

func (r *recorder) Transmit(frame []byte) error {
	r.frames = append(r.frames, append([]byte(nil), frame...))
	return r.err
}

func (r *recorder) last(t *testing.T) packet.Message {
	t.Helper()
	require.NotEmpty(t, r.frames)
	msg, err := packet.Decode(r.frames[len(r.frames)-1])
	require.NoError(t, err)
	return msg
}

type rig struct {
	tick uint32
	raw  uint16
	tx   *recorder
	c    *Controller
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{tx: &recorder{}}
	cfg, err := smooth.NewConfig(1023, 1.0, func() uint32 { return r.tick })
	require.NoError(t, err)
	r.c, err = New(cfg, func() uint16 { return r.raw }, r.tx, triggerKey)
	require.NoError(t, err)
	return r
}

func (r *rig) scan(t *testing.T, ms uint32) {
	t.Helper()
	r.tick += ms
	require.NoError(t, r.c.Scan())
}

func TestNew_Validation(t *testing.T) {
	cfg, err := smooth.NewConfig(1023, 1, func() uint32 { return 0 })
	require.NoError(t, err)
	src := func() uint16 { return 0 }

	_, err = New(nil, src, &recorder{}, triggerKey)
	assert.ErrorIs(t, err, ErrNoConfig)
	_, err = New(cfg, nil, &recorder{}, triggerKey)
	assert.ErrorIs(t, err, ErrNoSource)
	_, err = New(cfg, src, nil, triggerKey)
	assert.ErrorIs(t, err, ErrNoTransmitter)
}

func TestController_InitialState(t *testing.T) {
	r := newRig(t)
	assert.Equal(t, mode.Volume, r.c.Mode())
	assert.Equal(t, uint16(0), r.c.Value())
	assert.Empty(t, r.tx.frames)
}

func TestScan_SendsOnChange(t *testing.T) {
	r := newRig(t)

	r.raw = 1023
	r.scan(t, 100)
	require.Len(t, r.tx.frames, 1)
	assert.Len(t, r.tx.frames[0], packet.FrameSize)

	msg := r.tx.last(t)
	assert.Equal(t, packet.SetVolume, msg.Command)
	assert.Equal(t, r.c.Value(), msg.Value)
	assert.False(t, r.c.Axis().HasNewValue(), "flag consumed after send")
}

func TestScan_NoSendWithoutChange(t *testing.T) {
	r := newRig(t)

	for i := 0; i < 100; i++ {
		r.scan(t, 1)
	}
	assert.Empty(t, r.tx.frames)
}

func TestScan_OneSendPerChange(t *testing.T) {
	r := newRig(t)

	r.raw = 1023
	r.scan(t, 60000)
	for i := 0; i < 50; i++ {
		r.scan(t, 1)
	}
	require.Len(t, r.tx.frames, 1)
	assert.Equal(t, uint16(0xFFFF), r.tx.last(t).Value)
}

func TestScan_TransmitErrorConsumesChange(t *testing.T) {
	r := newRig(t)
	r.tx.err = errors.New("endpoint busy")

	r.raw = 1023
	r.tick += 60000
	err := r.c.Scan()
	assert.ErrorIs(t, err, r.tx.err)
	assert.False(t, r.c.Axis().HasNewValue())

	r.tx.err = nil
	r.scan(t, 1)
	assert.Len(t, r.tx.frames, 1, "failed change is not resent")
}

func TestCycleMode_SendsImmediately(t *testing.T) {
	r := newRig(t)
	r.c.Axis().Seed(512)

	require.NoError(t, r.c.CycleMode())
	require.Len(t, r.tx.frames, 1)
	msg := r.tx.last(t)
	assert.Equal(t, packet.SetBrightness, msg.Command)
	assert.Equal(t, uint16(32800), msg.Value)
}

func TestCycleMode_IgnoresPendingFlag(t *testing.T) {
	r := newRig(t)
	r.raw = 1023
	r.tick += 100
	r.c.Axis().Update(r.raw)
	require.True(t, r.c.Axis().HasNewValue())

	require.NoError(t, r.c.CycleMode())
	assert.Len(t, r.tx.frames, 1)
	assert.True(t, r.c.Axis().HasNewValue(), "cycling does not consume the slider change")
}

func TestProcessKey_SixPressesCycleBack(t *testing.T) {
	r := newRig(t)
	r.c.Axis().Seed(100)

	want := []packet.Command{
		packet.SetBrightness,
		packet.Shortcut1,
		packet.Shortcut2,
		packet.Shortcut3,
		packet.Shortcut4,
		packet.SetVolume,
	}
	for i, cmd := range want {
		cont, err := r.c.ProcessKey(triggerKey, true)
		require.NoError(t, err)
		assert.False(t, cont, "trigger key is intercepted")
		require.Len(t, r.tx.frames, i+1, "one send per press")
		assert.Equal(t, cmd, r.tx.last(t).Command)
		assert.Equal(t, r.c.Value(), r.tx.last(t).Value)
	}
	assert.Equal(t, mode.Volume, r.c.Mode())
}

func TestProcessKey_ReleaseIsNoop(t *testing.T) {
	r := newRig(t)

	cont, err := r.c.ProcessKey(triggerKey, false)
	require.NoError(t, err)
	assert.False(t, cont, "release of trigger key is still intercepted")
	assert.Equal(t, mode.Volume, r.c.Mode())
	assert.Empty(t, r.tx.frames)
}

func TestProcessKey_OtherKeysPassThrough(t *testing.T) {
	r := newRig(t)

	for _, pressed := range []bool{true, false} {
		cont, err := r.c.ProcessKey(triggerKey+1, pressed)
		require.NoError(t, err)
		assert.True(t, cont)
	}
	assert.Equal(t, mode.Volume, r.c.Mode())
	assert.Empty(t, r.tx.frames)
}

func TestProcessKey_TransmitError(t *testing.T) {
	r := newRig(t)
	r.tx.err = errors.New("unplugged")

	cont, err := r.c.ProcessKey(triggerKey, true)
	assert.False(t, cont)
	assert.ErrorIs(t, err, r.tx.err)
	assert.Equal(t, mode.Brightness, r.c.Mode(), "mode advances even if the send fails")
}

func TestScan_UsesCurrentMode(t *testing.T) {
	r := newRig(t)
	_, err := r.c.ProcessKey(triggerKey, true)
	require.NoError(t, err)
	_, err = r.c.ProcessKey(triggerKey, true)
	require.NoError(t, err)

	r.raw = 700
	r.scan(t, 60000)
	msg := r.tx.last(t)
	assert.Equal(t, packet.Shortcut1, msg.Command)
}

func TestInverted(t *testing.T) {
	var raw uint16
	src := Inverted(func() uint16 { return raw }, 1023)

	tests := []struct {
		in, want uint16
	}{
		{0, 1023},
		{1023, 0},
		{23, 1000},
		{2000, 0},
	}
	for _, tt := range tests {
		raw = tt.in
		assert.Equal(t, tt.want, src())
	}
}

func TestTransmitterFunc(t *testing.T) {
	var got []byte
	tx := TransmitterFunc(func(frame []byte) error {
		got = frame
		return nil
	})
	require.NoError(t, tx.Transmit([]byte{1, 2}))
	assert.Equal(t, []byte{1, 2}, got)
}
