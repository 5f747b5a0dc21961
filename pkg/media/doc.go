// Package media implements the image upload-and-attach workflow shared by every
// entity edit form in the portal.
//
// An attachment is stored on the parent entity as a plain URL string. The
// Uploader validates a file against per-field Constraints and writes it to a
// Storage backend under a generated name. A Manager holds the per-form state
// (empty, uploading, attached) and reports changes through callbacks. A Cleaner
// removes superseded objects in the background once a replacement has been
// saved.
//
// Storage Consistency
//
// Entity saves never wait on storage cleanup. Objects left behind by abandoned
// edits or failed deletes are orphans and are tolerated.
package media
