package bot

import (
	"context"
	"strings"
	"time"
)

// progressSteps is how many frames the loading animation renders.
const progressSteps = 3

// progressFrames returns the text of each animation step for base.
func progressFrames(base string) []string {
	frames := make([]string, progressSteps)
	for i := range frames {
		frames[i] = base + strings.Repeat(".", i%3)
	}
	return frames
}

// Progress is a running loading animation on one message.
type Progress struct {
	Ref  MessageRef
	done chan struct{}
}

// Wait blocks until the animation has finished editing the message.
func (p *Progress) Wait() MessageRef {
	<-p.done
	return p.Ref
}

// startProgress sends base and animates it in the background, editing the
// message only when the frame text differs from what is shown.
func (b *Bot) startProgress(ctx context.Context, chatID int64, base string) *Progress {
	p := &Progress{
		Ref:  b.reply(ctx, chatID, base),
		done: make(chan struct{}),
	}
	go func() {
		defer close(p.done)
		shown := base
		timer := time.NewTimer(b.opts.LoadingInterval)
		defer timer.Stop()
		for i, frame := range progressFrames(base) {
			if i > 0 {
				timer.Reset(b.opts.LoadingInterval)
			}
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			if frame != shown {
				shown = frame
				b.edit(ctx, p.Ref, frame)
			}
		}
	}()
	return p
}
