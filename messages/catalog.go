// Package messages holds every user-visible template in one place so the
// texts can be reviewed together and overridden from a YAML file without
// rebuilding.
package messages

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Catalog struct {
	ProcessingText     string `yaml:"processing_text"`
	ProcessingImage    string `yaml:"processing_image"`
	ProcessingLocation string `yaml:"processing_location"`

	Welcome           string `yaml:"welcome"`
	ProfileSetupStart string `yaml:"profile_setup_start"`
	ProfileAgePrompt  string `yaml:"profile_age_prompt"`
	ProfileSkipped    string `yaml:"profile_skipped"`
	GenderPrompt      string `yaml:"gender_prompt"`
	GenderInvalid     string `yaml:"gender_invalid"`
	ProfileSavedFull  string `yaml:"profile_saved_full"`
	ProfileSavedNoGen string `yaml:"profile_saved_no_gender"`
	ProfileHoldImage  string `yaml:"profile_hold_image"`
	ProfileHoldLoc    string `yaml:"profile_hold_location"`

	Help           string `yaml:"help"`
	Emergency      string `yaml:"emergency"`
	SessionCleared string `yaml:"session_cleared"`
	NoHistory      string `yaml:"no_history"`
	NoRecentRecord string `yaml:"no_recent_record"`
	FeedbackThanks string `yaml:"feedback_thanks"`
	ImageError     string `yaml:"image_error"`
	Apology        string `yaml:"apology"`

	TextRecorded     string `yaml:"text_recorded"`
	ImageRecorded    string `yaml:"image_recorded"`
	LocationReceived string `yaml:"location_received"`
	NothingToAnalyze string `yaml:"nothing_to_analyze"`
	FeedbackPrompt   string `yaml:"feedback_prompt"`

	CheckIn           string `yaml:"check_in"`
	FollowUpImproved  string `yaml:"follow_up_improved"`
	FollowUpWorsened  string `yaml:"follow_up_worsened"`
	FollowUpUnchanged string `yaml:"follow_up_unchanged"`
	FollowUpOther     string `yaml:"follow_up_other"`

	ClinicListHeader string `yaml:"clinic_list_header"`
	ClinicListFooter string `yaml:"clinic_list_footer"`
	NoClinicsFound   string `yaml:"no_clinics_found"`
}

func Default() Catalog {
	return Catalog{
		ProcessingText:     "🔄 Processing your request. Doing research using PubMed and medical databases. Please wait a few seconds or minutes depending on complexity.",
		ProcessingImage:    "🖼️ Processing your medical image. Analyzing with AI and searching medical literature. Please wait a few seconds or minutes.",
		ProcessingLocation: "📍 Processing your location. Finding nearby medical facilities and checking WHO disease outbreak alerts. Please wait a few seconds.",

		Welcome: "👋 Welcome to MedSense AI.\n" +
			"Type your symptoms (e.g., 'I have fever and chills') or send an image from your camera or gallery.\n" +
			"You can provide text, image, or both for the best analysis!\n" +
			"📋 Type 'history' to see your past consultations\n" +
			"📋 Type 'clear' to clear session data and start a new session\n" +
			"⚠️ I'm an AI assistant, not a doctor. For emergencies, text EMERGENCY and visit a clinic.",
		ProfileSetupStart: "👋 Welcome to MedSense AI!\n\n" +
			"To provide you with more accurate medical analysis, I'd like to know a bit about you.\n\n" +
			"📅 Please tell me your age (or type 'skip' if you prefer not to share):",
		ProfileAgePrompt: "Please enter a valid age between 1 and 120, or type 'skip':",
		ProfileSkipped:   "No problem! You can start using MedSense AI right away.\n\n",
		GenderPrompt:     "👤 Thank you! Now please tell me your gender (Male/Female/Other) or type 'skip':",
		GenderInvalid:    "Please enter Male, Female, Other, or type 'skip':",
		ProfileSavedFull: "✅ Thank you! Profile saved (Age: %d, Gender: %s).\n\n" +
			"💡 Tip: Mention your country anytime (e.g., 'United States', 'India') to receive disease outbreak alerts in your area.\n\n",
		ProfileSavedNoGen: "✅ Profile saved! You can now start using MedSense AI.\n\n" +
			"💡 Tip: Mention your country anytime (e.g., 'United States', 'India') to receive disease outbreak alerts in your area.\n\n",
		ProfileHoldImage: "Please complete your profile setup first before sending images.",
		ProfileHoldLoc:   "Please complete your profile setup first before sharing location.",

		Help:           "Type your symptoms or send an image. You can provide text, image, or both. Say 'proceed' when ready for analysis!",
		Emergency:      "🚨 This may be urgent. Please visit a clinic immediately.",
		SessionCleared: "Session cleared. You can start fresh with new symptoms and images.",
		NoHistory:      "📋 Your Recent Medical History:\n\nNo medical history found.",
		NoRecentRecord: "No recent diagnosis found to provide feedback for.",
		FeedbackThanks: "Thank you for your %s feedback! 🙏\n\nFeel free to ask about new symptoms or type 'history' to see past consultations.",
		ImageError:     "Sorry, I couldn't download the image. Please try sending it again.",
		Apology:        "I apologize, but I'm experiencing technical difficulties. Please try again or consult a healthcare professional if your concern is urgent.",

		TextRecorded: "✅ I've recorded your symptoms: '%s'\n\n" +
			"📸 Please send an image of the affected area for a complete analysis, or type 'proceed' if you only want text-based analysis.\n\n" +
			"Type 'clear' to start over or 'history' to see past consultations.",
		ImageRecorded: "✅ I've received your image.\n\n" +
			"📝 Please describe your symptoms in text (e.g., 'I have pain and swelling'), or type 'proceed' if you only want image-based analysis.\n\n" +
			"Type 'clear' to start over or 'history' to see past consultations.",
		LocationReceived: "📍 Location received: %s\n\nNow you can share your symptoms or send an image for analysis!",
		NothingToAnalyze: "Please describe your symptoms or send an image. You can provide text, image, or both! Type 'history' to see past consultations.",
		FeedbackPrompt: "\n\n💬 Please provide feedback on this diagnosis by replying 'good' or 'bad' to help improve our service.\n\n" +
			"📍 Would you like to share your location to get nearby clinic recommendations?",

		CheckIn: "🩺 **24-Hour Health Check-in**\n\n" +
			"Hi! Yesterday you consulted me about: *%s*\n\n" +
			"I wanted to check in on your health:\n" +
			"**Have your symptoms improved, stayed the same, or gotten worse?**\n\n" +
			"Please let me know how you're feeling now. If your symptoms have worsened or you have new concerns, I'm here to help! 💙",
		FollowUpImproved: "😊 **Great to hear you're feeling better!**\n\n" +
			"That's wonderful news. Continue taking care of yourself and don't hesitate to reach out if you have any new health concerns.\n\n" +
			locationOffer,
		FollowUpWorsened: "😟 **I'm sorry to hear your symptoms have worsened.**\n\n" +
			"Since your condition hasn't improved in 24 hours, I recommend consulting with a healthcare professional for a proper evaluation.\n\n" +
			"Please describe your current symptoms so I can provide updated guidance:\n\n" +
			locationOffer,
		FollowUpUnchanged: "📋 **I see your symptoms are about the same.**\n\n" +
			"If symptoms persist without improvement for more than a few days, it may be worth getting a professional evaluation.\n\n" +
			"Feel free to describe any changes or new symptoms you've noticed:\n\n" +
			locationOffer,
		FollowUpOther: "🩺 **Thank you for the update on your health.**\n\n" +
			"I'm here to help if you'd like to describe your current symptoms in more detail or if you have any new health concerns.\n\n" +
			locationOffer,

		ClinicListHeader: "📍 Based on your location (%s), here are the nearest medical facilities:\n\n",
		ClinicListFooter: "Visit the most appropriate facility based on your symptoms' urgency.\n\n" +
			"Feel free to ask about new symptoms or type 'history' to see past consultations.",
		NoClinicsFound: "📍 Location received: %s\n\n" +
			"I couldn't find specific medical facilities within 5km, but you should visit your nearest clinic or hospital for the symptoms discussed.\n\n" +
			"Feel free to ask about new symptoms or type 'history' to see past consultations.",
	}
}

const locationOffer = "📍 **Please share your location if you would like a list of clinics near you and an alert if your location has been flagged by WHO for an epidemic alert.**"

// Load returns the default catalog with any non-empty fields from the YAML
// file at path layered on top. An empty path means defaults only.
func Load(path string) (Catalog, error) {
	cat := Default()
	path = strings.TrimSpace(path)
	if path == "" {
		return cat, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cat, fmt.Errorf("read messages file: %w", err)
	}
	var override Catalog
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return cat, fmt.Errorf("parse messages file: %w", err)
	}
	cat.merge(override)
	return cat, nil
}

func (c *Catalog) merge(o Catalog) {
	dst := []*string{
		&c.ProcessingText, &c.ProcessingImage, &c.ProcessingLocation,
		&c.Welcome, &c.ProfileSetupStart, &c.ProfileAgePrompt, &c.ProfileSkipped,
		&c.GenderPrompt, &c.GenderInvalid, &c.ProfileSavedFull, &c.ProfileSavedNoGen,
		&c.ProfileHoldImage, &c.ProfileHoldLoc,
		&c.Help, &c.Emergency, &c.SessionCleared, &c.NoHistory, &c.NoRecentRecord,
		&c.FeedbackThanks, &c.ImageError, &c.Apology,
		&c.TextRecorded, &c.ImageRecorded, &c.LocationReceived, &c.NothingToAnalyze,
		&c.FeedbackPrompt,
		&c.CheckIn, &c.FollowUpImproved, &c.FollowUpWorsened, &c.FollowUpUnchanged,
		&c.FollowUpOther,
		&c.ClinicListHeader, &c.ClinicListFooter, &c.NoClinicsFound,
	}
	src := []string{
		o.ProcessingText, o.ProcessingImage, o.ProcessingLocation,
		o.Welcome, o.ProfileSetupStart, o.ProfileAgePrompt, o.ProfileSkipped,
		o.GenderPrompt, o.GenderInvalid, o.ProfileSavedFull, o.ProfileSavedNoGen,
		o.ProfileHoldImage, o.ProfileHoldLoc,
		o.Help, o.Emergency, o.SessionCleared, o.NoHistory, o.NoRecentRecord,
		o.FeedbackThanks, o.ImageError, o.Apology,
		o.TextRecorded, o.ImageRecorded, o.LocationReceived, o.NothingToAnalyze,
		o.FeedbackPrompt,
		o.CheckIn, o.FollowUpImproved, o.FollowUpWorsened, o.FollowUpUnchanged,
		o.FollowUpOther,
		o.ClinicListHeader, o.ClinicListFooter, o.NoClinicsFound,
	}
	for i, v := range src {
		if strings.TrimSpace(v) != "" {
			*dst[i] = v
		}
	}
}
