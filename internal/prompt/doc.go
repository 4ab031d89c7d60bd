// Package prompt shows toasts and modal dialogs in a guest's browser.
//
// A Prompt never draws anything. It turns four small request types into
// pop-up library options and hands them to a Renderer, which in production is
// a live browser connection (see package live) and in tests is the scripted
// fake from package prompttest.
//
// # Fire and forget
//
// Toast, Notice and Error schedule rendering and return at once. Renderer
// failures are logged, never returned:
//
//	p.Toast(prompt.ToastRequest{Message: "Reservation saved"})
//	p.Error(prompt.ErrorRequest{Message: "No availability"})
//
// # Custom dialogs
//
// Custom renders a modal with input fields owned by the host page and returns
// a Pending handle that resolves exactly once:
//
//	res, err := p.Custom(ctx, prompt.CustomRequest{
//	    Title: "Choose your dates",
//	    Body:  formHTML,
//	}).Wait(ctx)
//	if err == nil && res.OK {
//	    start, end := res.Pair()
//	    ...
//	}
//
// Cancelling the dialog and confirming it with an empty first field both
// resolve with OK == false; callers cannot tell the two apart.
package prompt
