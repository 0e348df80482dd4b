package console_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"vibecoder.app/console/internal/board"
	"vibecoder.app/console/internal/console"
	"vibecoder.app/console/internal/model"
)

var _ = Describe("Printer", func() {
	var (
		out     *bytes.Buffer
		printer *console.Printer
	)

	BeforeEach(func() {
		out = &bytes.Buffer{}
		printer = console.NewPrinter(out)
	})

	It("prints assistant messages only", func() {
		printer.MessageAppended(model.UserMessage("hello"))
		printer.MessageAppended(model.AssistantMessage("Starting work."))
		Expect(out.String()).To(Equal("agency> Starting work.\n"))
	})

	It("announces phase and status changes once", func() {
		view := board.View{State: board.StateAttached, Phase: "Build", Status: "Writing API"}
		printer.BoardChanged(board.View{State: board.StateLoading, Phase: "Discovery"})
		printer.BoardChanged(view)
		view.Tasks = []string{"new task"}
		printer.BoardChanged(view)
		Expect(out.String()).To(Equal("[board] Build: Writing API\n"))
	})

	It("formats the default board", func() {
		Expect(console.FormatBoard(board.View{
			State:  board.StateAttached,
			Phase:  board.DefaultPhase,
			Status: board.DefaultStatus,
			Tasks:  []string{},
		})).To(Equal("Phase:  Discovery\nStatus: Waiting for mission brief...\nTasks:  none\n"))
	})

	It("numbers tasks and flags a loading board", func() {
		printer.PrintBoard(board.View{
			State:  board.StateLoading,
			Phase:  "Build",
			Status: "Writing API",
			Tasks:  []string{"schema", "auth"},
		})
		Expect(out.String()).To(ContainSubstring("(connecting to board...)"))
		Expect(out.String()).To(ContainSubstring("  1. schema\n  2. auth\n"))
	})
})
