// Package introspect provides a read-only terminal browser over a
// clp.Handle's symbol table, for hosts that want an interactive way to
// explore a large descriptor tree instead of dumping Syntax/Help/Docu
// text to a pipe.
package introspect

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/limes-datentechnik-gmbh/flamclep/clp"
)

// Browser is the text user interface over one Handle's symbol table.
type Browser struct {
	Handle *clp.Handle
	App    *tview.Application
	Pages  *tview.Pages

	Layout   *tview.Flex
	Tree     *tview.TreeView
	Detail   *tview.TextView
	HelpPane *tview.TextView
}

// NewBrowser builds a Browser over h, rooted at h's top-level symbols.
func NewBrowser(h *clp.Handle) *Browser {
	b := &Browser{
		Handle: h,
		App:    tview.NewApplication(),
	}
	b.initializeViews()
	b.buildLayout()
	b.populateTree()
	b.setupKeyBindings()
	return b
}

func (b *Browser) initializeViews() {
	b.Tree = tview.NewTreeView().SetTopLevel(0)
	b.Tree.SetBorder(true).SetTitle(" Arguments ")

	b.Detail = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true)
	b.Detail.SetBorder(true).SetTitle(" Descriptor ")

	b.HelpPane = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true)
	b.HelpPane.SetBorder(true).SetTitle(" Manual ")
}

func (b *Browser) buildLayout() {
	right := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(b.Detail, 0, 1, false).
		AddItem(b.HelpPane, 0, 2, false)

	b.Layout = tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(b.Tree, 0, 1, true).
		AddItem(right, 0, 2, false)

	b.Pages = tview.NewPages().AddPage("main", b.Layout, true, true)
}

// symRef carries the symbol a tree node stands for, so the detail and
// help panes can re-walk the handle's symbol table from it.
type symRef struct {
	sym *clp.Symbol
}

func (b *Browser) populateTree() {
	root := tview.NewTreeNode("(root)").SetColor(tcell.ColorYellow)
	b.Tree.SetRoot(root).SetCurrentNode(root)

	first := b.Handle.SymbolWalk(nil, clp.WalkRoot)
	for sym := firstSymbol(first); sym != nil; sym = nextSymbol(b.Handle, sym) {
		b.addNode(root, sym)
	}

	b.Tree.SetChangedFunc(func(node *tview.TreeNode) {
		ref, ok := node.GetReference().(*symRef)
		if !ok || ref == nil {
			b.Detail.SetText("")
			b.HelpPane.SetText("")
			return
		}
		b.showDetail(ref.sym)
	})
}

func firstSymbol(e *clp.SymbolEntry) *clp.Symbol {
	if e == nil {
		return nil
	}
	return e.Symbol
}

// nextSymbol advances a sibling-list walk one step, returning nil once
// the list is exhausted.
func nextSymbol(h *clp.Handle, cur *clp.Symbol) *clp.Symbol {
	next := h.SymbolWalk(cur, clp.WalkNext)
	return firstSymbol(next)
}

// addNode appends one tree node for sym under parent, and recursively
// for its children; the whole tree is walked when it is built, not when
// a node is expanded.
func (b *Browser) addNode(parent *tview.TreeNode, sym *clp.Symbol) {
	label := sym.Keyword
	entry := b.Handle.SymbolWalk(sym, clp.WalkOld)
	if entry != nil && (entry.Kind == clp.KindObject || entry.Kind == clp.KindOverlay) {
		label += "/"
	}
	node := tview.NewTreeNode(label).SetReference(&symRef{sym: sym})
	if entry != nil && entry.Flags.Has(clp.FlagHidden) {
		node.SetColor(tcell.ColorGray)
	}
	parent.AddChild(node)

	if entry != nil && (entry.Kind == clp.KindObject || entry.Kind == clp.KindOverlay) {
		node.SetSelectable(true)
		node.SetExpanded(false)
		dep := b.Handle.SymbolWalk(sym, clp.WalkDep)
		for child := firstSymbol(dep); child != nil; child = nextSymbol(b.Handle, child) {
			b.addNode(node, child)
		}
	}
}

func (b *Browser) showDetail(sym *clp.Symbol) {
	entry := b.Handle.SymbolWalk(sym, clp.WalkOld)
	if entry == nil {
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "[yellow]%s[-]\n", entry.Path)
	fmt.Fprintf(&sb, "kind:  %s\n", entry.Kind)
	fmt.Fprintf(&sb, "min/max: %d/%d\n", entry.Min, entry.Max)
	if countEntry := b.Handle.SymbolWalk(sym, clp.WalkCount); countEntry != nil {
		fmt.Fprintf(&sb, "count: %d\n", countEntry.Value)
	}
	b.Detail.SetText(sb.String())

	manual := entry.Manual
	if manual == "" {
		manual = entry.Help
	}
	if manual == "" {
		manual = "(no manual text)"
	}
	b.HelpPane.SetText(manual)
}

func (b *Browser) setupKeyBindings() {
	b.Tree.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEnter:
			node := b.Tree.GetCurrentNode()
			if node != nil {
				node.SetExpanded(!node.IsExpanded())
			}
			return nil
		case tcell.KeyEscape:
			b.App.Stop()
			return nil
		}
		return event
	})
}

// Run starts the interactive browser. It blocks until the user quits
// (Esc) or the application is stopped from elsewhere.
func (b *Browser) Run() error {
	b.App.SetRoot(b.Pages, true).SetFocus(b.Tree)
	return b.App.Run()
}

// Pager renders one documentation string (Syntax/Help/Docu output) in a
// scrollable, non-interactive full-screen view — used by hosts that want
// a quick look without the full tree browser.
func Pager(title, text string) error {
	app := tview.NewApplication()
	view := tview.NewTextView().
		SetDynamicColors(false).
		SetScrollable(true).
		SetWrap(true).
		SetText(text)
	view.SetBorder(true).SetTitle(" " + title + " ")
	view.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape || event.Rune() == 'q' {
			app.Stop()
			return nil
		}
		return event
	})
	return app.SetRoot(view, true).Run()
}
