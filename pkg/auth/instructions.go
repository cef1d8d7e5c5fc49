package auth

import (
	"fmt"
	"io"
	"strings"
)

// WriteSessionIDGuide explains how to copy the ims_sid cookie from a
// logged-in browser session.
func WriteSessionIDGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "FINDING YOUR ADOBE IMS SESSION ID")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "1. Sign in at https://substance3d.adobe.com/assets in your browser.")
	fmt.Fprintln(w, "2. Open the developer tools (F12, or Cmd+Option+I on a Mac).")
	fmt.Fprintln(w, "3. Chrome/Edge: Application > Cookies. Firefox: Storage > Cookies.")
	fmt.Fprintln(w, "4. Select https://adobeid-na1.services.adobe.com.")
	fmt.Fprintln(w, "5. Copy the value of the ims_sid cookie, without quotes.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The session id grants access to your Adobe account. Keep it private;")
	fmt.Fprintln(w, "it stops working when you sign out of the browser session.")
	fmt.Fprintln(w, rule)
}
