package emails

import "fmt"

// Templates renders the workflow emails. SiteURL is used for dashboard links.
type Templates struct {
	BrandName string
	SiteURL   string
}

func (t Templates) brand() string {
	if t.BrandName != "" {
		return t.BrandName
	}
	return "Estates"
}

func (t Templates) wrap(subject, content string) (string, string) {
	return subject, EmailLayout(t.brand(), content)
}

func (t Templates) link(path string) string {
	return t.SiteURL + path
}

// ListingSubmittedAgent confirms a submission to the listing's agent.
func (t Templates) ListingSubmittedAgent(name, title string) (string, string) {
	return t.wrap("Your listing is under review", fmt.Sprintf(`
    <h1>Thank you, %s</h1>
    <p>Your listing <strong>%s</strong> has been submitted and is now waiting for review by our team.</p>
    <p>We will let you know as soon as a decision has been made.</p>`,
		EscapeHTML(greeting(name)), EscapeHTML(title)))
}

// ListingSubmittedAdmin alerts reviewers that a listing is waiting.
func (t Templates) ListingSubmittedAdmin(title, listingID string) (string, string) {
	return t.wrap("New listing awaiting review: "+title, fmt.Sprintf(`
    <h1>A listing needs review</h1>
    <p><strong>%s</strong> was submitted for moderation.</p>
    <center><a href="%s" class="estate-button">Open review queue</a></center>`,
		EscapeHTML(title), t.link("/admin/listings/"+listingID)))
}

// ListingApproved tells the agent their listing passed review.
func (t Templates) ListingApproved(name, title, listingID string) (string, string) {
	return t.wrap("Your listing has been approved", fmt.Sprintf(`
    <h1>Good news, %s</h1>
    <p>Your listing <strong>%s</strong> has been approved. You can publish it from your dashboard whenever you are ready.</p>
    <center><a href="%s" class="estate-button">Go to listing</a></center>`,
		EscapeHTML(greeting(name)), EscapeHTML(title), t.link("/agent/listings/"+listingID)))
}

// ListingRejected tells the agent their listing was rejected and why.
func (t Templates) ListingRejected(name, title, notes string) (string, string) {
	return t.wrap("Your listing needs changes", fmt.Sprintf(`
    <h1>Hello %s</h1>
    <p>Your listing <strong>%s</strong> was not approved. The reviewer left this note:</p>
    <p class="quote">%s</p>`,
		EscapeHTML(greeting(name)), EscapeHTML(title), EscapeHTML(notes)))
}

// EngagementReceived confirms an enquiry or application to the customer.
func (t Templates) EngagementReceived(name, kind, title string) (string, string) {
	about := "your enquiry"
	if title != "" {
		about = fmt.Sprintf("your %s about <strong>%s</strong>", EscapeHTML(kind), EscapeHTML(title))
	}
	return t.wrap("We received your "+kind, fmt.Sprintf(`
    <h1>Thank you, %s</h1>
    <p>We have received %s. A member of our team will be in touch shortly.</p>`,
		EscapeHTML(greeting(name)), about))
}

// EngagementAlert tells the responsible agent or admin about a new lead.
func (t Templates) EngagementAlert(kind, title, fromName, fromEmail, message string) (string, string) {
	subject := "New " + kind
	if title != "" {
		subject += ": " + title
	}
	return t.wrap(subject, fmt.Sprintf(`
    <h1>New %s</h1>
    <p>From <strong>%s</strong> (%s)</p>
    <p class="quote">%s</p>`,
		EscapeHTML(kind), EscapeHTML(fromName), EscapeHTML(fromEmail), EscapeHTML(message)))
}

// EngagementResponded carries the agent's answer back to the customer.
func (t Templates) EngagementResponded(name, status, title, response string) (string, string) {
	content := fmt.Sprintf(`
    <h1>Hello %s</h1>
    <p>There is an update on your request%s: <strong>%s</strong>.</p>`,
		EscapeHTML(greeting(name)), aboutTitle(title), EscapeHTML(status))
	if response != "" {
		content += fmt.Sprintf(`
    <p class="quote">%s</p>`, EscapeHTML(response))
	}
	return t.wrap("An update on your request", content)
}

func greeting(name string) string {
	if name == "" {
		return "there"
	}
	return name
}

func aboutTitle(title string) string {
	if title == "" {
		return ""
	}
	return " about " + EscapeHTML(title)
}
