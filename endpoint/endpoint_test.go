package endpoint

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/visiona/oatbus/node"
	"github.com/visiona/oatbus/payload"
	"github.com/visiona/oatbus/segment"
)

func testAddress(t *testing.T) string {
	return "/oatbus-test-" + t.Name()
}

func cleanup(t *testing.T, address string) {
	t.Cleanup(func() {
		segment.Remove(address)
	})
}

func TestSinkSourceSingleConsumerRoundTrip(t *testing.T) {
	address := testAddress(t)
	cleanup(t, address)

	var sink Sink[payload.Position2D, *payload.Position2D]
	if err := sink.Bind(address, 0); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer sink.Close()

	var source Source[payload.Position2D, *payload.Position2D]
	if err := source.Touch(address, 0); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	defer source.Close()

	done := make(chan error, 1)
	go func() { done <- source.Connect() }()

	obj, err := sink.Retrieve()
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	obj.SetLabel("widget")
	obj.SetPosition(1, 2)
	sink.Post(uuid.New())

	if err := <-done; err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if state := source.Wait(); state != OK {
		t.Fatalf("Wait = %v, want OK", state)
	}

	got, err := source.Retrieve()
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if got.GetLabel() != "widget" {
		t.Fatalf("GetLabel = %q, want widget", got.GetLabel())
	}
	if got.Position.X != 1 || got.Position.Y != 2 {
		t.Fatalf("Position = %+v, want (1,2)", got.Position)
	}
	source.Post()

	if sink.Wait() != OK {
		t.Fatalf("sink.Wait() did not observe consumer post")
	}
}

func TestSinkPostZeroConsumersDoesNotBlock(t *testing.T) {
	address := testAddress(t)
	cleanup(t, address)

	var sink Sink[payload.Position2D, *payload.Position2D]
	if err := sink.Bind(address, 0); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer sink.Close()

	done := make(chan struct{})
	go func() {
		sink.Post(uuid.New())
		if sink.Wait() != OK {
			t.Errorf("Wait with zero consumers did not fast-return OK")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Sink.Post/Wait with zero consumers blocked")
	}
}

func TestSinkBindAlreadyBoundFails(t *testing.T) {
	address := testAddress(t)
	cleanup(t, address)

	var sink Sink[payload.Position2D, *payload.Position2D]
	if err := sink.Bind(address, 0); err != nil {
		t.Fatalf("first Bind: %v", err)
	}
	defer sink.Close()

	var second Sink[payload.Position2D, *payload.Position2D]
	if err := second.Bind(address, 0); err != ErrAlreadyBound {
		t.Fatalf("second Bind = %v, want ErrAlreadyBound", err)
	}
}

func TestSourceTripleConsumerFanOut(t *testing.T) {
	address := testAddress(t)
	cleanup(t, address)

	var sink Sink[payload.Position2D, *payload.Position2D]
	if err := sink.Bind(address, 0); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer sink.Close()

	sources := make([]*Source[payload.Position2D, *payload.Position2D], 3)
	for i := range sources {
		sources[i] = &Source[payload.Position2D, *payload.Position2D]{}
		if err := sources[i].Touch(address, 0); err != nil {
			t.Fatalf("Touch %d: %v", i, err)
		}
		defer sources[i].Close()
		if err := sources[i].Connect(); err != nil {
			t.Fatalf("Connect %d: %v", i, err)
		}
	}

	obj, _ := sink.Retrieve()
	obj.SetPosition(5, 6)
	sink.Post(uuid.New())

	for i, src := range sources {
		if state := src.Wait(); state != OK {
			t.Fatalf("source %d Wait = %v, want OK", i, state)
		}
		got, err := src.Retrieve()
		if err != nil {
			t.Fatalf("source %d Retrieve: %v", i, err)
		}
		if got.Position.X != 5 || got.Position.Y != 6 {
			t.Fatalf("source %d Position = %+v", i, got.Position)
		}
		src.Post()
	}

	if sink.Wait() != OK {
		t.Fatalf("sink.Wait() after all 3 consumers posted should be OK")
	}
}

func TestSourceLateJoinWaitsForBound(t *testing.T) {
	address := testAddress(t)
	cleanup(t, address)

	var source Source[payload.Position2D, *payload.Position2D]
	if err := source.Touch(address, 0); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	defer source.Close()

	connectDone := make(chan error, 1)
	go func() { connectDone <- source.Connect() }()

	select {
	case <-connectDone:
		t.Fatalf("Connect returned before sink bound")
	case <-time.After(20 * time.Millisecond):
	}

	var sink Sink[payload.Position2D, *payload.Position2D]
	if err := sink.Bind(address, 0); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer sink.Close()

	select {
	case err := <-connectDone:
		if err != nil {
			t.Fatalf("Connect: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Connect did not observe late Bind")
	}
}

func TestSinkEndOfStreamReleasesWaitingSource(t *testing.T) {
	address := testAddress(t)
	cleanup(t, address)

	var sink Sink[payload.Position2D, *payload.Position2D]
	if err := sink.Bind(address, 0); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	var source Source[payload.Position2D, *payload.Position2D]
	if err := source.Touch(address, 0); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if err := source.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	waitDone := make(chan NodeState, 1)
	go func() { waitDone <- source.Wait() }()

	time.Sleep(10 * time.Millisecond)
	if err := sink.Close(); err != nil {
		t.Fatalf("sink.Close: %v", err)
	}

	select {
	case state := <-waitDone:
		if state != End {
			t.Fatalf("Wait = %v, want End", state)
		}
	case <-time.After(time.Second):
		t.Fatalf("Wait did not observe end-of-stream")
	}

	source.Close()
}

func TestSinkWaitEvictsStaleConsumerAndUnblocks(t *testing.T) {
	address := testAddress(t)
	cleanup(t, address)

	original := node.HeartbeatTimeout
	node.HeartbeatTimeout = 20 * time.Millisecond
	defer func() { node.HeartbeatTimeout = original }()

	var sink Sink[payload.Position2D, *payload.Position2D]
	if err := sink.Bind(address, 0); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer sink.Close()

	var source Source[payload.Position2D, *payload.Position2D]
	if err := source.Touch(address, 0); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if err := source.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	// source attaches and then goes quiet without ever calling Wait or
	// Post again, simulating a consumer that crashed mid-sample.
	defer source.Close()

	sink.Post(uuid.New())

	waitDone := make(chan NodeState, 1)
	go func() { waitDone <- sink.Wait() }()

	select {
	case state := <-waitDone:
		if state != OK {
			t.Fatalf("sink.Wait() = %v, want OK once the stale consumer is evicted", state)
		}
	case <-time.After(time.Second):
		t.Fatalf("sink.Wait() did not unblock after the consumer's heartbeat timed out")
	}
}

func TestFrameSourceResolvesPixelView(t *testing.T) {
	address := testAddress(t)
	cleanup(t, address)

	const w, h = 4, 3
	format := payload.PixelFormatGray8
	extra := int(w * h * format.BytesPerPixel())

	var sink Sink[payload.SharedFrameHeader, *payload.SharedFrameHeader]
	if err := sink.Bind(address, extra); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer sink.Close()

	hdr, err := sink.Retrieve()
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	hdr.Width, hdr.Height, hdr.Format = w, h, format

	var source Source[payload.SharedFrameHeader, *payload.SharedFrameHeader]
	if err := source.Touch(address, extra); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	defer source.Close()
	if err := source.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	sink.Post(uuid.New())

	if state := source.Wait(); state != OK {
		t.Fatalf("Wait = %v, want OK", state)
	}
	defer source.Post()

	view, ok := source.View()
	if !ok {
		t.Fatalf("View() ok = false, want true for framed payload")
	}
	if len(view) != extra {
		t.Fatalf("View() len = %d, want %d", len(view), extra)
	}

	pixels, err := source.ClonePixelBuffer()
	if err != nil {
		t.Fatalf("ClonePixelBuffer: %v", err)
	}
	if len(pixels) != extra {
		t.Fatalf("ClonePixelBuffer len = %d, want %d", len(pixels), extra)
	}
}

func TestSourceCloneIsIndependentOfLaterWrites(t *testing.T) {
	address := testAddress(t)
	cleanup(t, address)

	var sink Sink[payload.Position2D, *payload.Position2D]
	if err := sink.Bind(address, 0); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer sink.Close()

	var source Source[payload.Position2D, *payload.Position2D]
	if err := source.Touch(address, 0); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	defer source.Close()
	if err := source.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	obj, _ := sink.Retrieve()
	obj.SetPosition(1, 1)
	sink.Post(uuid.New())

	if state := source.Wait(); state != OK {
		t.Fatalf("Wait = %v, want OK", state)
	}
	clone, err := source.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	source.Post()

	// The producer overwrites the same shared slot with a new sample
	// after the consumer has posted; clone must already be a private
	// copy and stay untouched by it.
	obj2, _ := sink.Retrieve()
	obj2.SetPosition(99, 99)
	sink.Post(uuid.New())

	if clone.Position.X != 1 || clone.Position.Y != 1 {
		t.Fatalf("clone mutated by later producer write: got %+v, want (1,1)", clone.Position)
	}
}

func TestSourceWriteNumberIsGapFreeAcrossSamples(t *testing.T) {
	address := testAddress(t)
	cleanup(t, address)

	var sink Sink[payload.Position2D, *payload.Position2D]
	if err := sink.Bind(address, 0); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer sink.Close()

	var source Source[payload.Position2D, *payload.Position2D]
	if err := source.Touch(address, 0); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	defer source.Close()
	if err := source.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	const samples = 1000
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < samples; i++ {
			obj, _ := sink.Retrieve()
			obj.SetPosition(float64(i), float64(i))
			sink.Post(uuid.New())
			if sink.Wait() != OK {
				return
			}
		}
	}()

	var last uint64
	for i := 0; i < samples; i++ {
		if state := source.Wait(); state != OK {
			t.Fatalf("sample %d: Wait = %v, want OK", i, state)
		}
		wn := source.WriteNumber()
		if i == 0 {
			last = wn
		} else if wn != last+1 {
			t.Fatalf("sample %d: write_number jumped from %d to %d, want %d", i, last, wn, last+1)
		} else {
			last = wn
		}
		got, err := source.Retrieve()
		if err != nil {
			t.Fatalf("sample %d: Retrieve: %v", i, err)
		}
		if got.Position.X != float64(i) {
			t.Fatalf("sample %d: Position.X = %v, want %d", i, got.Position.X, i)
		}
		source.Post()
	}

	<-done
}

func TestEndpointRefcountClosesToZeroAndRemovesSegment(t *testing.T) {
	address := testAddress(t)
	cleanup(t, address)

	var sink Sink[payload.Position2D, *payload.Position2D]
	if err := sink.Bind(address, 0); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	sources := make([]*Source[payload.Position2D, *payload.Position2D], 3)
	for i := range sources {
		sources[i] = &Source[payload.Position2D, *payload.Position2D]{}
		if err := sources[i].Touch(address, 0); err != nil {
			t.Fatalf("Touch %d: %v", i, err)
		}
		if err := sources[i].Connect(); err != nil {
			t.Fatalf("Connect %d: %v", i, err)
		}
	}

	if !segment.Exists(address) {
		t.Fatalf("segment does not exist while sink and sources are attached")
	}

	if err := sink.Close(); err != nil {
		t.Fatalf("sink.Close: %v", err)
	}
	for i, src := range sources {
		if state := src.Wait(); state != End {
			t.Fatalf("source %d Wait = %v, want End", i, state)
		}
		if err := src.Close(); err != nil {
			t.Fatalf("source %d Close: %v", i, err)
		}
	}

	if segment.Exists(address) {
		t.Fatalf("segment still exists after sink and every source detached")
	}
}

func TestThreeConsumersHundredFramesEndToEnd(t *testing.T) {
	address := testAddress(t)
	cleanup(t, address)

	const w, h = 2, 2
	format := payload.PixelFormatGray8
	extra := int(w * h * format.BytesPerPixel())

	var sink Sink[payload.SharedFrameHeader, *payload.SharedFrameHeader]
	if err := sink.Bind(address, extra); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	sources := make([]*Source[payload.SharedFrameHeader, *payload.SharedFrameHeader], 3)
	for i := range sources {
		sources[i] = &Source[payload.SharedFrameHeader, *payload.SharedFrameHeader]{}
		if err := sources[i].Touch(address, extra); err != nil {
			t.Fatalf("Touch %d: %v", i, err)
		}
		if err := sources[i].Connect(); err != nil {
			t.Fatalf("Connect %d: %v", i, err)
		}
	}

	const frames = 100
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < frames; i++ {
			hdr, _ := sink.Retrieve()
			hdr.Width, hdr.Height, hdr.Format = w, h, format
			view, _ := sink.View()
			for j := range view {
				view[j] = byte(i)
			}
			sink.Post(uuid.New())
			if sink.Wait() != OK {
				return
			}
		}
		sink.Close()
	}()

	for i := 0; i < frames; i++ {
		for c, src := range sources {
			if state := src.Wait(); state != OK {
				t.Fatalf("frame %d consumer %d: Wait = %v, want OK", i, c, state)
			}
			pixels, err := src.ClonePixelBuffer()
			if err != nil {
				t.Fatalf("frame %d consumer %d: ClonePixelBuffer: %v", i, c, err)
			}
			for _, b := range pixels {
				if b != byte(i) {
					t.Fatalf("frame %d consumer %d: pixel = %d, want %d", i, c, b, byte(i))
				}
			}
			src.Post()
		}
	}

	<-done
	for i, src := range sources {
		if state := src.Wait(); state != End {
			t.Fatalf("consumer %d final Wait = %v, want End", i, state)
		}
		if err := src.Close(); err != nil {
			t.Fatalf("consumer %d Close: %v", i, err)
		}
	}
}
