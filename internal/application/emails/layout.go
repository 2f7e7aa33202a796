package emails

import (
	"fmt"
	"strings"
	"time"
)

const (
	themePrimary   = "#8C6D3F"
	themeTextMain  = "#1F2937"
	themeTextMuted = "#6B7280"
	themeBgBody    = "#F5F3EF"
	themeWhite     = "#FFFFFF"
)

// EmailLayout wraps content in the branded transactional layout.
func EmailLayout(brand, contentHTML string) string {
	year := time.Now().Year()
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>%s</title>
  <style>
    body { margin: 0; padding: 0; background-color: %s; font-family: Georgia, 'Times New Roman', serif; color: %s; }
    .content-body p { margin: 0 0 20px 0; font-size: 16px; line-height: 1.6; }
    .content-body h1 { font-size: 24px; margin: 0 0 20px 0; font-weight: 600; }
    .estate-button { display: inline-block; background-color: %s; color: #ffffff !important; padding: 12px 32px; text-decoration: none; border-radius: 4px; font-weight: 600; }
    .quote { border-left: 3px solid %s; padding: 8px 16px; color: %s; }
    .footer-text { color: %s; font-size: 13px; }
  </style>
</head>
<body>
  <table role="presentation" width="100%%" border="0" cellspacing="0" cellpadding="0" style="background-color: %s;">
    <tr>
      <td align="center" style="padding: 40px 0;">
        <table role="presentation" width="600" border="0" cellspacing="0" cellpadding="0" style="width: 600px; background-color: %s; border-radius: 6px;">
          <tr><td class="content-body" style="padding: 40px 48px 24px 48px;">%s</td></tr>
          <tr><td align="center" style="padding: 24px 48px 40px 48px;"><p class="footer-text">© %d %s. All rights reserved.</p></td></tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`,
		EscapeHTML(brand), themeBgBody, themeTextMain, themePrimary, themePrimary, themeTextMuted, themeTextMuted,
		themeBgBody, themeWhite, contentHTML, year, EscapeHTML(brand))
}

// EscapeHTML escapes HTML specials for safe interpolation.
func EscapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}
