package player

import (
	"context"
	"fmt"

	"github.com/samber/mo"
	"github.com/sampletvinput/tvplay/log"
)

// SetSurface stores s and hands it to the video renderer without waiting.
// Without a video renderer the surface is kept and pushed once one appears.
func (p *DemoPlayer) SetSurface(s Surface) error {
	p.mu.Lock()
	p.surface = mo.Some(s)
	p.mu.Unlock()

	return p.pushSurface(context.Background(), false)
}

// BlockingClearSurface detaches the current surface and returns once the
// video renderer no longer uses it. ctx bounds the wait on the engine.
func (p *DemoPlayer) BlockingClearSurface(ctx context.Context) error {
	p.mu.Lock()
	p.surface = mo.None[Surface]()
	p.mu.Unlock()

	return p.pushSurface(ctx, true)
}

// Surface returns the stored surface.
func (p *DemoPlayer) Surface() mo.Option[Surface] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.surface
}

func (p *DemoPlayer) pushSurface(ctx context.Context, block bool) error {
	p.mu.Lock()
	video, surface := p.videoRenderer, p.surface
	p.mu.Unlock()

	target, ok := video.Get()
	if !ok {
		log.Debug("no video renderer, surface push skipped")
		return nil
	}

	msg := Message{Target: target, Kind: MsgSetSurface, Payload: surface}
	if block {
		if err := p.engine.BlockingSendMessage(ctx, msg); err != nil {
			return fmt.Errorf("detach surface: %w", err)
		}
		return nil
	}

	if err := p.engine.SendMessage(msg); err != nil {
		return fmt.Errorf("attach surface: %w", err)
	}
	return nil
}
