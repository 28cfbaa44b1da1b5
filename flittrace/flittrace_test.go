package flittrace_test

import (
	"bytes"
	"encoding/binary"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/garnetvis/flittrace"
	"google.golang.org/protobuf/encoding/protowire"
)

func encode(events ...flittrace.Event) []byte {
	buf := bytes.NewBuffer(nil)
	Expect(flittrace.WriteEvents(buf, events)).To(Succeed())

	return buf.Bytes()
}

var _ = Describe("Reading", func() {
	It("should decode the fields by number", func() {
		var msg []byte
		msg = protowire.AppendTag(msg, 1, protowire.VarintType)
		msg = protowire.AppendVarint(msg, 500)
		msg = protowire.AppendTag(msg, 2, protowire.BytesType)
		msg = protowire.AppendString(msg, "RI")
		msg = protowire.AppendTag(msg, 3, protowire.VarintType)
		msg = protowire.AppendVarint(msg, 7)
		msg = protowire.AppendTag(msg, 6, protowire.VarintType)
		msg = protowire.AppendVarint(msg, 2)
		msg = protowire.AppendTag(msg, 7, protowire.VarintType)
		msg = protowire.AppendVarint(msg, 9)
		msg = protowire.AppendTag(msg, 99, protowire.BytesType)
		msg = protowire.AppendString(msg, "ignored")

		e, err := flittrace.UnmarshalEvent(msg)
		Expect(err).ToNot(HaveOccurred())
		Expect(e).To(Equal(flittrace.Event{
			Tick: 500, Status: "RI", GlobalID: 7, Src: 2, Dest: 9,
		}))
	})

	It("should read a whole log", func() {
		in := []flittrace.Event{
			{Tick: 1, Status: "RI", GlobalID: 1, Src: 0, Dest: 3},
			{Tick: 2, Status: "SI", GlobalID: 1, LinkID: 0},
		}

		events, err := flittrace.ReadEvents(bytes.NewReader(encode(in...)))
		Expect(err).ToNot(HaveOccurred())
		Expect(events).To(Equal(in))
	})

	It("should keep the events before a truncated record", func() {
		data := encode(
			flittrace.Event{Tick: 1, Status: "RI", GlobalID: 1},
			flittrace.Event{Tick: 2, Status: "SE", GlobalID: 1},
		)

		events, err := flittrace.ReadEvents(bytes.NewReader(data[:len(data)-2]))
		Expect(err).To(MatchError(flittrace.ErrTruncated))
		Expect(events).To(HaveLen(1))
	})

	It("should skip messages that do not decode", func() {
		bad := []byte{0x0a}
		var prefix [4]byte
		binary.LittleEndian.PutUint32(prefix[:], uint32(len(bad)))

		data := append(prefix[:], bad...)
		data = append(data, encode(flittrace.Event{Tick: 3, Status: "SE"})...)

		d := flittrace.NewDecoder(bytes.NewReader(data))
		e, err := d.Next()
		Expect(err).ToNot(HaveOccurred())
		Expect(e.Tick).To(Equal(uint64(3)))
		Expect(d.Skipped()).To(Equal(1))
	})
})

var _ = Describe("Replay", func() {
	events := []flittrace.Event{
		{Tick: 0, Status: "RI", GlobalID: 1, PacketID: 0, ID: 0, Src: 0, Dest: 1},
		{Tick: 100, Status: "SI", GlobalID: 1, LinkID: 0},
		{Tick: 300, Status: "ST", GlobalID: 1, LinkID: 0},
		{Tick: 300, Status: "RI", GlobalID: 2, PacketID: 1, ID: 0, Src: 5, Dest: 6},
		{Tick: 200, Status: "RR", GlobalID: 1, LinkID: 0},
		{Tick: 200, Status: "RR", GlobalID: 42, LinkID: 3},
		{Tick: 500, Status: "SE", GlobalID: 1},
	}

	It("should take one snapshot per distinct tick", func() {
		tl := flittrace.Replay(events)
		Expect(tl.Len()).To(Equal(5))
		Expect(tl.MaxTick()).To(Equal(uint64(500)))
	})

	It("should track where each flit is", func() {
		tl := flittrace.Replay(events)

		s, ok := tl.At(250)
		Expect(ok).To(BeTrue())
		Expect(s.Tick).To(Equal(uint64(200)))
		Expect(s.Routers).To(HaveKey(0))
		Expect(s.Routers).ToNot(HaveKey(3))

		s, _ = tl.At(300)
		Expect(s.Routers).To(BeEmpty())
		Expect(s.Links[0]).To(HaveLen(1))

		s, _ = tl.At(1000)
		Expect(s.Links).To(BeEmpty())
	})
})

var _ = Describe("Mesh", func() {
	It("should build a 4x4 mesh", func() {
		m := flittrace.NewMesh(4)
		Expect(m.Routers).To(HaveLen(16))
		Expect(m.Links).To(HaveLen(48))
		Expect(m.Routers[6]).To(Equal(flittrace.Position{X: 1, Y: 2}))

		Expect(m.Links[0]).To(Equal(flittrace.Link{ID: 0, Src: 0, Dst: 1}))
		Expect(m.Links[12]).To(Equal(flittrace.Link{ID: 12, Src: 1, Dst: 0}))
		Expect(m.Links[24]).To(Equal(flittrace.Link{ID: 24, Src: 0, Dst: 4}))
		Expect(m.Links[36]).To(Equal(flittrace.Link{ID: 36, Src: 4, Dst: 0}))
	})

	It("should find the reverse links", func() {
		m := flittrace.NewMesh(4)
		for _, l := range m.Links {
			r := m.Links[m.Reverse(l.ID)]
			Expect(r.Src).To(Equal(l.Dst))
			Expect(r.Dst).To(Equal(l.Src))
		}
	})
})

var _ = Describe("Animate", func() {
	It("should refuse an empty trace", func() {
		_, err := flittrace.Animate(flittrace.Replay(nil), flittrace.NewMesh(4), 250)
		Expect(err).To(MatchError(flittrace.ErrEmptyTrace))
	})

	It("should refuse too many frames", func() {
		tl := flittrace.Replay([]flittrace.Event{
			{Tick: 0, Status: "RI", GlobalID: 1, Src: 0, Dest: 1},
			{Tick: flittrace.MaxFrames, Status: "SE", GlobalID: 1},
		})

		_, err := flittrace.Animate(tl, flittrace.NewMesh(2), 1)
		Expect(err).To(MatchError(flittrace.ErrTooManyFrames))

		a, err := flittrace.Animate(tl, flittrace.NewMesh(2), 2)
		Expect(err).ToNot(HaveOccurred())
		Expect(a.Frames).To(HaveLen(flittrace.MaxFrames/2 + 1))
	})

	It("should stop at the last tick of a very long trace", func() {
		tl := flittrace.Replay([]flittrace.Event{
			{Tick: 0, Status: "RI", GlobalID: 1, Src: 0, Dest: 1},
			{Tick: math.MaxUint64 - 1, Status: "SE", GlobalID: 1},
		})

		_, err := flittrace.Animate(tl, flittrace.NewMesh(2), 1)
		Expect(err).To(MatchError(flittrace.ErrTooManyFrames))

		a, err := flittrace.Animate(tl, flittrace.NewMesh(2), math.MaxUint64/2)
		Expect(err).ToNot(HaveOccurred())
		Expect(a.Frames).To(HaveLen(3))
		Expect(a.Frames[2].Tick).To(Equal(uint64(math.MaxUint64 - 1)))
	})

	It("should draw frames at every interval", func() {
		tl := flittrace.Replay([]flittrace.Event{
			{Tick: 10, Status: "RI", GlobalID: 3, PacketID: 1, ID: 2, Src: 0, Dest: 1},
			{Tick: 20, Status: "RR", GlobalID: 3, LinkID: 0},
			{Tick: 300, Status: "ST", GlobalID: 3, LinkID: 0},
			{Tick: 600, Status: "SE", GlobalID: 3},
		})

		a, err := flittrace.Animate(tl, flittrace.NewMesh(4), 250)
		Expect(err).ToNot(HaveOccurred())
		Expect(a.Frames).To(HaveLen(3))
		Expect(a.Snapshots).To(Equal(4))

		f := a.Frames[0]
		Expect(f.Tick).To(BeZero())
		Expect(f.Routers[0].Flits).To(BeZero())
		Expect(f.Routers[0].Size).To(Equal(10))

		f = a.Frames[1]
		Expect(f.Routers[0].Active).To(BeTrue())
		Expect(f.Routers[0].Size).To(Equal(15))
		Expect(f.Routers[0].Labels).To(Equal([]string{"G3 (P1.F2): R0→R1"}))

		f = a.Frames[2]
		Expect(f.Links[0].Flits).To(Equal(1))
		Expect(f.Links[0].Width).To(Equal(2))
		Expect(f.Links[12].Flits).To(BeZero())
		Expect(f.Links[12].Active).To(BeTrue())
		Expect(f.Links[1].Active).To(BeFalse())
	})
})
