package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/agent"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/clinics"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/session"
)

const defaultImageTask = "Please analyze this medical image for any health concerns."

// inputUpdate is the partial input an async unit merges into the
// session before deciding what to do with the assembled state.
type inputUpdate struct {
	text  string
	image []byte
}

// analyze merges the new input, then either runs the full consultation
// or prompts for the missing modality. force is the proceed command:
// analyze with whatever is present.
func (d *Dispatcher) analyze(ctx context.Context, ev Event, upd inputUpdate, force bool) {
	if upd.text != "" {
		d.sessions.SetPendingText(ev.UserID, upd.text)
	}
	if len(upd.image) > 0 {
		d.sessions.SetPendingImage(ev.UserID, upd.image)
	}
	sess := d.sessions.Get(ev.UserID)

	hasText := strings.TrimSpace(sess.PendingText) != ""
	hasImage := len(sess.PendingImage) > 0
	switch {
	case hasText && hasImage:
		d.runAnalysis(ctx, ev, sess)
	case force && (hasText || hasImage):
		d.runAnalysis(ctx, ev, sess)
	case force:
		d.send(ctx, ev, d.cat.NothingToAnalyze)
	case hasText:
		d.send(ctx, ev, d.cat.RenderTextRecorded(sess.PendingText))
	case hasImage:
		d.send(ctx, ev, d.cat.ImageRecorded)
	default:
		d.send(ctx, ev, d.cat.NothingToAnalyze)
	}
}

func (d *Dispatcher) runAnalysis(ctx context.Context, ev Event, sess session.Session) {
	task := strings.TrimSpace(sess.PendingText)
	switch {
	case task == "":
		task = defaultImageTask
	case len(sess.PendingImage) > 0:
		task += "\n\nAn image of the affected area was attached to this consultation."
	}

	final, runCtx, err := d.engine.Run(ctx, task, agent.RunOptions{
		UserID:  ev.UserID,
		Context: d.patientContext(ctx, ev, sess),
	})
	if err != nil {
		d.log.Error("analysis_error", "user_id", ev.UserID, "message_id", ev.MessageID, "error", err)
		d.send(ctx, ev, d.cat.Apology)
		return
	}
	if runCtx != nil {
		d.log.Info("analysis_done",
			"user_id", ev.UserID,
			"steps", len(runCtx.Steps),
			"llm_rounds", runCtx.Metrics.LLMRounds,
			"total_tokens", runCtx.Metrics.TotalTokens,
			"tools_used", strings.Join(runCtx.ToolsUsed(), ","),
		)
	}
	reply := strings.TrimSpace(final.Text())
	if reply == "" {
		// Inputs stay pending so the user can retry with proceed.
		d.send(ctx, ev, d.cat.Apology)
		return
	}
	d.sessions.ClearPending(ev.UserID)
	d.sessions.SetAwaitingClinicLocation(ev.UserID, true)
	d.send(ctx, ev, reply+d.cat.FeedbackPrompt)
}

// patientContext renders what the engine should know about the user
// into one prompt block. History stays behind the get_user_profile
// tool; only cheap local state goes in the prompt.
func (d *Dispatcher) patientContext(ctx context.Context, ev Event, sess session.Session) []agent.PromptBlock {
	var b strings.Builder
	fmt.Fprintf(&b, "user_id: %s\nplatform: %s\n", ev.UserID, ev.Platform)
	if profile, err := d.store.GetProfile(ctx, ev.UserID); err == nil && profile != nil {
		if profile.Age != nil {
			fmt.Fprintf(&b, "age: %d\n", *profile.Age)
		}
		if profile.Gender != nil {
			fmt.Fprintf(&b, "gender: %s\n", *profile.Gender)
		}
	}
	if country, err := d.store.Country(ctx, ev.UserID); err == nil && country != "" {
		fmt.Fprintf(&b, "country: %s\n", country)
	}
	if sess.PendingLocation != nil && sess.PendingLocation.Address != "" {
		fmt.Fprintf(&b, "current_location: %s\n", sess.PendingLocation.Address)
	}
	return []agent.PromptBlock{{
		Title:   "Patient Context",
		Content: strings.TrimRight(b.String(), "\n"),
	}}
}

// recordLocation treats a shared position as new partial input: persist
// it, remember it on the session, and prompt for symptoms.
func (d *Dispatcher) recordLocation(ctx context.Context, ev Event, loc Location) {
	address := d.clinics.ReverseGeocode(ctx, loc.Lat, loc.Lon)
	if err := d.store.SaveLocation(ctx, ev.UserID, loc.Lat, loc.Lon, address); err != nil {
		d.log.Warn("location_save_error", "user_id", ev.UserID, "error", err)
	}
	d.saveCountryFromAddress(ctx, ev.UserID, address)
	d.sessions.SetPendingLocation(ev.UserID, session.Location{Lat: loc.Lat, Lon: loc.Lon, Address: address})
	d.send(ctx, ev, d.cat.RenderLocationReceived(address))
}

// recommendClinics answers a location shared after an analysis: resolve
// nearby facilities and clear the awaiting flag so the next location is
// ordinary input again.
func (d *Dispatcher) recommendClinics(ctx context.Context, ev Event, loc Location) {
	address := d.clinics.ReverseGeocode(ctx, loc.Lat, loc.Lon)
	if err := d.store.SaveLocation(ctx, ev.UserID, loc.Lat, loc.Lon, address); err != nil {
		d.log.Warn("location_save_error", "user_id", ev.UserID, "error", err)
	}
	d.saveCountryFromAddress(ctx, ev.UserID, address)

	facilities, err := d.clinics.FindNearby(ctx, loc.Lat, loc.Lon, d.cfg.ClinicRadiusKm)
	if err != nil {
		d.log.Error("clinic_lookup_error", "user_id", ev.UserID, "error", err)
		facilities = nil
	}
	d.sessions.SetAwaitingClinicLocation(ev.UserID, false)
	d.send(ctx, ev, clinics.FormatRecommendations(d.cat, facilities, address))
}

// Reverse-geocoded addresses end with the country, so the last
// comma-separated segment feeds outbreak monitoring.
func (d *Dispatcher) saveCountryFromAddress(ctx context.Context, userID, address string) {
	parts := strings.Split(address, ", ")
	if len(parts) < 2 {
		return
	}
	country := strings.TrimSpace(parts[len(parts)-1])
	if country == "" {
		return
	}
	if err := d.store.SaveCountry(ctx, userID, country); err != nil {
		d.log.Warn("country_save_error", "user_id", userID, "error", err)
		return
	}
	d.log.Info("country_saved_from_location", "user_id", userID, "country", country)
}
