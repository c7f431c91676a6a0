package flow

import (
	"fmt"
	"html/template"
	"io"
)

// callbackPageTemplate is the HTML served at the end of the OAuth callback.
// It realizes two-channel result delivery with graceful degradation:
//
//   - popup flow (preferred): post {type:"oauth_result", resultId} to the
//     opener window, scoped to the sanitized target origin (wildcard when the
//     origin is unknown), then close the popup
//   - redirect flow: when there is no opener but the origin is known, send
//     the current window to <origin>/?oauth_result=<id>
//   - otherwise the page stays static with instructions to return manually
//
// Only the opaque result ID and the sanitized origin are interpolated; the
// token payload itself stays behind the one-time result indirection so it
// never lands in browser history or referrer headers.
const callbackPageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Connecting&hellip;</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: #0f172a;
            color: #e2e8f0;
            display: flex;
            align-items: center;
            justify-content: center;
            min-height: 100vh;
            margin: 0;
        }
        .card {
            text-align: center;
            padding: 2rem;
            max-width: 420px;
        }
        h1 { font-size: 1.25rem; font-weight: 600; }
        p { color: #94a3b8; line-height: 1.6; }
    </style>
</head>
<body>
    <div class="card">
        <h1>Finishing sign-in&hellip;</h1>
        <p>If this window does not close on its own, return to the app tab to continue.</p>
    </div>
    <script>
        (function () {
            var resultId = "{{.ResultID}}";
            var targetOrigin = "{{.TargetOrigin}}";
            var message = { type: "oauth_result", resultId: resultId };

            if (window.opener) {
                try {
                    window.opener.postMessage(message, targetOrigin || "*");
                } catch (e) { /* opener gone */ }
                window.close();
            } else if (targetOrigin) {
                window.location.replace(targetOrigin + "/?oauth_result=" + encodeURIComponent(resultId));
            }
        })();
    </script>
</body>
</html>`

var callbackPage = template.Must(template.New("callback").Parse(callbackPageTemplate))

// callbackPageData holds the only two values interpolated into the page.
type callbackPageData struct {
	ResultID     string
	TargetOrigin string
}

// RenderCallbackPage writes the callback HTML for a one-time result ID and
// an optional sanitized target origin. targetOrigin must come from
// SanitizeOrigin; it is never raw client input.
func RenderCallbackPage(w io.Writer, resultID, targetOrigin string) error {
	data := callbackPageData{
		ResultID:     resultID,
		TargetOrigin: targetOrigin,
	}
	if err := callbackPage.Execute(w, data); err != nil {
		return fmt.Errorf("rendering callback page: %w", err)
	}
	return nil
}
