package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/user/nextdoor-crawler/internal/repository"
)

const draftWidth = 72

type line struct {
	text string
	err  error
}

// Prompter asks the operator questions on a terminal. Reads happen on a
// single background goroutine so a cancelled question never loses the next
// answer.
type Prompter struct {
	in    *bufio.Reader
	out   io.Writer
	once  sync.Once
	lines chan line
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:    bufio.NewReader(in),
		out:   out,
		lines: make(chan line),
	}
}

func (p *Prompter) readLoop() {
	defer close(p.lines)
	for {
		s, err := p.in.ReadString('\n')
		if s != "" || err == nil {
			p.lines <- line{text: strings.TrimRight(s, "\r\n")}
		}
		if err != nil {
			p.lines <- line{err: err}
			return
		}
	}
}

// Ask prints question and waits for one line of input.
func (p *Prompter) Ask(ctx context.Context, question string) (string, error) {
	p.once.Do(func() { go p.readLoop() })

	fmt.Fprint(p.out, question)
	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return "", ctx.Err()
	case l, ok := <-p.lines:
		if !ok {
			return "", io.EOF
		}
		return l.text, l.err
	}
}

// Approve shows the drafted reply and accepts only "yes".
func (p *Prompter) Approve(ctx context.Context, message string) (bool, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Generated Comment")
	t.AppendRow(table.Row{text.WrapSoft(message, draftWidth)})
	fmt.Fprintf(p.out, "\n%s\n", t.Render())

	answer, err := p.Ask(ctx, "Do you want to post this comment? (yes/no): ")
	if err != nil {
		return false, err
	}
	return normalize(answer) == "yes", nil
}

func (p *Prompter) AwaitSecondFactor(ctx context.Context) (repository.SecondFactorDecision, error) {
	answer, err := p.Ask(ctx, "Nextdoor requested 2FA or is slow to load. Complete authentication and type 'yes' when done (or 'no' to exit): ")
	if err != nil {
		return repository.SecondFactorUnknown, err
	}
	switch normalize(answer) {
	case "yes":
		return repository.SecondFactorConfirmed, nil
	case "no":
		return repository.SecondFactorDeclined, nil
	default:
		return repository.SecondFactorUnknown, nil
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
