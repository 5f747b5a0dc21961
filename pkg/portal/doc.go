// Package portal provides the generic entity editor behind the venue
// administration portal.
//
// Every managed entity (clubs, restaurants, lounges, live shows, subscription
// plans, posts) is described by a Schema built from typed fields. A single
// Editor type handles form state for any schema: scalar fields, chip lists and
// image attachments. The Service resolves the caller's session, persists
// records through a Repository scoped by tenant, cleans up replaced images and
// invalidates cached list pages after each write.
package portal
