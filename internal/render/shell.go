package render

import (
	"fmt"
	"html"
	"strings"
)

const shellTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
<style>
* { box-sizing: border-box; }
body {
  margin: 0;
  padding: 0;
  font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
  background: #f8f9fa;
  width: %dpx;
  min-height: %dpx;
}
#app-root { width: 100%%; min-height: 100vh; padding: 16px; }
button, input { font-family: inherit; }
</style>
</head>
<body>
<div id="app-root"></div>
<script>
window.canva = {
  auth: { getCanvaUserToken: function () { return Promise.resolve("mock-token"); } },
  ui: {
    startDrag: function () { return Promise.resolve(); },
    addNativeElement: function () { return Promise.resolve(); }
  }
};
</script>
<script>
try {
%s
} catch (error) {
  var p = document.createElement("p");
  p.style.color = "red";
  p.textContent = "Error rendering app: " + error.message;
  document.getElementById("app-root").appendChild(p);
}
</script>
</body>
</html>
`

// Shell wraps plain JavaScript in a page that mimics the app panel: a fixed
// width body, an #app-root mount point and a stubbed SDK global.
func Shell(code, title string, width, height int) string {
	// A literal closing tag inside the code would end the script element early.
	safe := strings.ReplaceAll(code, "</script", `<\/script`)
	return fmt.Sprintf(shellTemplate, html.EscapeString(title), width, height, safe)
}
