package gallery

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// Render prints a view as a table, or the panel heading and body when there are no cards.
func Render(w io.Writer, v View) error {
	if v.CountLabel != "" {
		fmt.Fprintf(w, "📷 %s\n\n", v.CountLabel)
	}

	switch v.Panel {
	case PanelLoading:
		_, err := fmt.Fprintln(w, "Loading photos...")
		return err
	case PanelEmpty, PanelError:
		_, err := fmt.Fprintf(w, "%s\n%s\n", v.Heading, v.Body)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "ID\tPHOTO\tFACES\tSAVED\tFILE")
	fmt.Fprintln(tw, "--\t-----\t-----\t-----\t----")
	for _, c := range v.Cards {
		file := c.Filename
		if c.ImageURL != "" {
			file = c.ImageURL
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", c.PhotoID, c.Title, c.FaceCount, c.SavedAt, file)
	}
	return tw.Flush()
}
