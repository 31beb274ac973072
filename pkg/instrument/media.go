package instrument

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MediaNode is an element parsed from inserted markup. It records listeners
// and replays them when an event is dispatched.
type MediaNode struct {
	tag   string
	attrs map[string]string

	mu          sync.Mutex
	currentTime float64
	readyState  int
	listeners   map[string][]func()
}

// ParseMediaFragment parses an HTML fragment as if inserted into the page
// body and returns every element in document order.
func ParseMediaFragment(r io.Reader) ([]*MediaNode, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	roots, err := html.ParseFragment(r, body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fragment: %w", err)
	}

	var nodes []*MediaNode
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			nodes = append(nodes, newMediaNode(n))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, root := range roots {
		walk(root)
	}
	return nodes, nil
}

func newMediaNode(n *html.Node) *MediaNode {
	attrs := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		attrs[a.Key] = a.Val
	}
	return &MediaNode{
		tag:       strings.ToUpper(n.Data),
		attrs:     attrs,
		listeners: make(map[string][]func()),
	}
}

// MediaElements converts nodes for ObserveMutation.
func MediaElements(nodes []*MediaNode) []MediaElement {
	out := make([]MediaElement, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out
}

// TagName implements MediaElement.
func (n *MediaNode) TagName() string { return n.tag }

// ID implements MediaElement.
func (n *MediaNode) ID() string { return n.attrs["id"] }

// Src implements MediaElement.
func (n *MediaNode) Src() string { return n.attrs["src"] }

// Attr returns a raw attribute value.
func (n *MediaNode) Attr(key string) (string, bool) {
	v, ok := n.attrs[key]
	return v, ok
}

// CurrentTime implements MediaElement.
func (n *MediaNode) CurrentTime() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.currentTime
}

// ReadyState implements MediaElement.
func (n *MediaNode) ReadyState() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.readyState
}

// SetPlayback updates the playback position and ready state.
func (n *MediaNode) SetPlayback(currentTime float64, readyState int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.currentTime = currentTime
	n.readyState = readyState
}

// AddEventListener implements MediaElement.
func (n *MediaNode) AddEventListener(event string, listener func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners[event] = append(n.listeners[event], listener)
}

// Dispatch runs the listeners registered for event and returns how many ran.
func (n *MediaNode) Dispatch(event string) int {
	n.mu.Lock()
	listeners := append([]func(){}, n.listeners[event]...)
	n.mu.Unlock()

	for _, l := range listeners {
		l()
	}
	return len(listeners)
}
