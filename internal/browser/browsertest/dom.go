package browsertest

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/gotrs-io/uiflow/internal/browser"
	"github.com/gotrs-io/uiflow/internal/profile"
)

type node struct {
	tag      string
	id       string
	classes  []string
	text     string
	attrs    map[string]string
	children []*node

	onClick  func()
	onFill   func(string)
	onSelect func(string) error
	property func(string) string
}

func el(tag string, classes ...string) *node {
	return &node{tag: tag, classes: classes, attrs: map[string]string{}}
}

func (n *node) add(children ...*node) *node {
	n.children = append(n.children, children...)
	return n
}

func (n *node) hasClass(c string) bool {
	for _, have := range n.classes {
		if have == c {
			return true
		}
	}
	return false
}

// textContent concatenates own and descendant text
func (n *node) textContent() string {
	var parts []string
	if n.text != "" {
		parts = append(parts, n.text)
	}
	for _, c := range n.children {
		if t := c.textContent(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

func (n *node) matches(sel browser.Selector) bool {
	switch sel.Kind {
	case browser.KindID:
		return n.id == sel.Value
	case browser.KindClass:
		return n.hasClass(sel.Value)
	case browser.KindTag:
		return n.tag == sel.Value
	case browser.KindButtonText:
		return n.tag == "button" && strings.Contains(n.text, sel.Value)
	default:
		return false
	}
}

// find walks descendants depth-first; includeSelf matches the root too
func (n *node) find(sel browser.Selector, includeSelf bool) []*node {
	var out []*node
	if includeSelf && n.matches(sel) {
		out = append(out, n)
	}
	for _, c := range n.children {
		out = append(out, c.find(sel, true)...)
	}
	return out
}

func (n *node) writeHTML(b *strings.Builder) {
	b.WriteString("<" + n.tag)
	if n.id != "" {
		fmt.Fprintf(b, ` id="%s"`, html.EscapeString(n.id))
	}
	if len(n.classes) > 0 {
		fmt.Fprintf(b, ` class="%s"`, html.EscapeString(strings.Join(n.classes, " ")))
	}
	b.WriteString(">")
	b.WriteString(html.EscapeString(n.text))
	for _, c := range n.children {
		c.writeHTML(b)
	}
	b.WriteString("</" + n.tag + ">")
}

// renderLocked builds the DOM for the current page; a.mu must be held
func (a *App) renderLocked() *node {
	body := el("body")
	if !a.loaded {
		return body
	}
	switch a.current {
	case pageHealth:
		pre := el("pre")
		pre.text = a.healthBody()
		return body.add(pre)
	case pageNotFound:
		pre := el("pre")
		pre.text = "Cannot GET"
		return body.add(pre)
	}

	p := a.p
	heading := el("h1")
	heading.text = p.AppName
	body.add(heading)

	form := el("form")
	title := a.control(p.Selectors.TitleInput, "input")
	title.attrs["value"] = a.form.title
	title.onFill = func(v string) { a.setForm(func(f *formState) { f.title = v }) }
	title.property = a.requiredProperty(func(f formState) string { return f.title })

	desc := a.control(p.Selectors.DescriptionInput, "textarea")
	desc.attrs["value"] = a.form.description
	desc.onFill = func(v string) { a.setForm(func(f *formState) { f.description = v }) }
	desc.property = a.requiredProperty(func(f formState) string { return f.description })

	prio := a.control(p.Selectors.PrioritySelect, "select")
	prio.attrs["value"] = string(a.form.priority)
	prio.onSelect = func(v string) error {
		for _, known := range profile.Priorities {
			if string(known) == v {
				a.setForm(func(f *formState) { f.priority = known })
				return nil
			}
		}
		return fmt.Errorf("no option with value %q", v)
	}

	submit := a.control(p.Selectors.Submit, "button")
	submit.text = "Add " + p.TitleNoun()
	submit.onClick = a.submit
	body.add(form.add(title, desc, prio, submit))

	if !a.opts.NoDeleteAll && !p.Selectors.DeleteAll.IsZero() {
		delAll := a.control(p.Selectors.DeleteAll, "button")
		delAll.text = "Clear All"
		delAll.onClick = a.deleteAll
		body.add(delAll)
	}

	list := el("div", "list")
	for _, e := range a.entities {
		list.add(a.renderItem(e))
	}
	return body.add(list)
}

// control creates an element addressable by sel
func (a *App) control(sel browser.Selector, tag string) *node {
	n := el(tag)
	switch sel.Kind {
	case browser.KindID:
		n.id = sel.Value
	case browser.KindClass:
		n.classes = append(n.classes, sel.Value)
	}
	return n
}

func (a *App) renderItem(e Entity) *node {
	p := a.p
	item := a.control(p.Selectors.Item, "div")
	if !a.opts.NoPriorityClass {
		item.classes = append(item.classes, p.PriorityClass(e.Priority))
	}

	title := a.control(p.Selectors.ItemTitle, "h3")
	title.text = e.Title
	desc := a.control(p.Selectors.ItemDescription, "p")
	desc.text = e.Description
	status := a.control(p.Selectors.ItemStatus, "span")
	status.classes = append(status.classes, p.StatusClass(e.Status))
	status.text = string(e.Status)
	item.add(title, desc, status)

	id := e.ID
	if !a.opts.NoComplete && e.Status != profile.StatusCompleted {
		btn := el("button")
		btn.text = p.Labels.Complete
		btn.onClick = func() { a.setStatus(id, profile.StatusCompleted) }
		item.add(btn)
	}
	if !a.opts.NoInProgress && e.Status == profile.StatusOpen {
		btn := el("button")
		btn.text = p.Labels.InProgress
		btn.onClick = func() { a.setStatus(id, profile.StatusInProgress) }
		item.add(btn)
	}
	del := el("button")
	del.text = p.Labels.Delete
	del.onClick = func() { a.deleteOne(id) }
	return item.add(del)
}

func (a *App) setForm(fn func(*formState)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(&a.form)
}

func (a *App) requiredProperty(value func(formState) string) func(string) string {
	return func(name string) string {
		if name != "validationMessage" || a.opts.NoValidationMessage {
			return ""
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		if strings.TrimSpace(value(a.form)) == "" {
			return DefaultValidationMessage
		}
		return ""
	}
}

func (a *App) submit() {
	a.mu.Lock()
	f := a.form
	empty := strings.TrimSpace(f.title) == "" || strings.TrimSpace(f.description) == ""
	if empty && !a.opts.AcceptEmpty {
		a.mu.Unlock()
		return
	}
	a.form = formState{priority: profile.PriorityMedium}
	a.mu.Unlock()

	noun := a.p.TitleNoun()
	a.mutate(noun+" created successfully!", func() {
		if a.opts.Capacity > 0 && len(a.entities) >= a.opts.Capacity {
			return
		}
		a.entities = append(a.entities, Entity{
			ID:          a.nextID,
			Title:       f.title,
			Description: f.description,
			Priority:    f.priority,
			Status:      profile.StatusOpen,
		})
		a.nextID++
	})
}

func (a *App) deleteAll() {
	if a.opts.DeleteAllFails {
		a.alert("Error deleting all " + a.p.PluralNoun())
		return
	}
	a.mutate("All "+a.p.PluralNoun()+" deleted", func() {
		a.entities = nil
	})
}

func (a *App) deleteOne(id int) {
	a.mutate(a.p.TitleNoun()+" deleted successfully!", func() {
		if a.opts.IgnoreDelete {
			return
		}
		for i, e := range a.entities {
			if e.ID == id {
				a.entities = append(a.entities[:i], a.entities[i+1:]...)
				return
			}
		}
	})
}

func (a *App) setStatus(id int, s profile.Status) {
	a.mutate(a.p.TitleNoun()+" updated successfully!", func() {
		if a.opts.IgnoreStatusChange {
			return
		}
		for i := range a.entities {
			if a.entities[i].ID == id {
				a.entities[i].Status = s
				return
			}
		}
	})
}

type element struct {
	app *App
	n   *node
}

func (a *App) wrap(nodes []*node) ([]browser.Element, error) {
	out := make([]browser.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &element{app: a, n: n})
	}
	return out, nil
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.n.onClick != nil {
		e.n.onClick()
	}
	return nil
}

func (e *element) Fill(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.n.onFill == nil {
		return fmt.Errorf("element <%s> is not an <input>, <textarea> or <select> element", e.n.tag)
	}
	e.n.onFill(text)
	return nil
}

func (e *element) SelectValue(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.n.onSelect == nil {
		return fmt.Errorf("element <%s> is not a <select> element", e.n.tag)
	}
	return e.n.onSelect(value)
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.n.textContent(), nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch name {
	case "class":
		return strings.Join(e.n.classes, " "), nil
	case "id":
		return e.n.id, nil
	}
	return e.n.attrs[name], nil
}

func (e *element) Property(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if e.n.property == nil {
		return "", nil
	}
	return e.n.property(name), nil
}

func (e *element) FindElements(ctx context.Context, sel browser.Selector) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.app.wrap(e.n.find(sel, false))
}
