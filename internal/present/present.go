// Package present renders navigation results as HTML fragments.
//
// Each query has a prompt fragment holding the input controls and a
// response fragment describing the result. Failures are rendered as plain
// sentences; error values never reach the markup.
package present

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"strconv"
	"strings"

	"github.com/Benny93/wayfinder-go/internal/navigation"
	"github.com/Benny93/wayfinder-go/internal/pathfinding"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("present").
	Funcs(template.FuncMap{"seconds": FormatSeconds}).
	ParseFS(templateFS, "templates/*.tmpl"))

// Failure sentences.
const (
	MsgNoPath          = "No path exists."
	MsgUnknownLocation = "One of the locations does not exist within the graph."
	MsgNoStarts        = "Enter at least one start location."
	MsgEmptyGraph      = "No locations are loaded."
	MsgNoDestination   = "No destination can be reached from all of the start locations, or any of the start locations does not exist within the graph."
	MsgFailed          = "The request could not be completed."
)

// Navigator is the query surface the fragments need.
type Navigator interface {
	Route(start, end string) (*navigation.Route, error)
	ClosestDestinationFromAll(starts []string) (*navigation.Destination, error)
}

// Message translates a query error into a sentence for the user.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, navigation.ErrNoStartLocations):
		return MsgNoStarts
	case errors.Is(err, navigation.ErrEmptyGraph):
		return MsgEmptyGraph
	case errors.Is(err, pathfinding.ErrNodeNotFound):
		return MsgUnknownLocation
	case errors.Is(err, pathfinding.ErrNoPathExists):
		return MsgNoPath
	default:
		return MsgFailed
	}
}

// FormatSeconds prints a travel time, keeping one decimal for whole numbers.
func FormatSeconds(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// SplitStarts splits a comma separated list of locations, trimming each
// entry and dropping empty ones.
func SplitStarts(list string) []string {
	var starts []string
	for _, s := range strings.Split(list, ",") {
		if s = strings.TrimSpace(s); s != "" {
			starts = append(starts, s)
		}
	}
	return starts
}

// ShortestPathPrompt returns the input controls for a shortest path query.
func ShortestPathPrompt() template.HTML {
	return mustRender("path_prompt", nil)
}

// ClosestPrompt returns the input controls for a closest destination query.
func ClosestPrompt() template.HTML {
	return mustRender("closest_prompt", nil)
}

type pathView struct {
	Start, End string
	Locations  []string
	Total      float64
	Failure    string
}

// ShortestPathResponse describes the shortest path from start to end.
func ShortestPathResponse(nav Navigator, start, end string) (template.HTML, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	view := pathView{Start: start, End: end}

	route, err := nav.Route(start, end)
	if err != nil {
		view.Failure = Message(err)
	} else {
		view.Locations = route.Locations
		view.Total = route.Total
	}
	return render("path_response", view)
}

type closestView struct {
	Starts      []string
	Destination string
	Total       float64
	Failure     string
}

// ClosestMessage is Message for closest-destination queries: an unknown
// start and an unreachable destination share one sentence.
func ClosestMessage(err error) string {
	if errors.Is(err, pathfinding.ErrNodeNotFound) || errors.Is(err, pathfinding.ErrNoPathExists) {
		return MsgNoDestination
	}
	return Message(err)
}

// ClosestResponse describes the destination reached most quickly from every
// location in the comma separated list from.
func ClosestResponse(nav Navigator, from string) (template.HTML, error) {
	starts := SplitStarts(from)
	view := closestView{Starts: starts}

	dest, err := nav.ClosestDestinationFromAll(starts)
	switch {
	case err != nil:
		view.Failure = ClosestMessage(err)
	default:
		view.Destination = dest.Name
		view.Total = dest.Total
	}
	return render("closest_response", view)
}

// PageData fills the full page.
type PageData struct {
	Title         string
	Locations     int
	Routes        int
	Result        template.HTML
	ClosestResult template.HTML
}

// Page renders the full page embedding both prompts.
func Page(data PageData) (template.HTML, error) {
	if data.Title == "" {
		data.Title = "Wayfinder"
	}
	return render("page", data)
}

func render(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func mustRender(name string, data any) template.HTML {
	out, err := render(name, data)
	if err != nil {
		panic(err)
	}
	return out
}
