// Package http exposes the JSON API for the family scheduler.
//
// Endpoints:
//
//	POST   /sessions            authenticate and issue a session token
//	DELETE /sessions/current    revoke the caller's session
//	GET    /events              list events, filterable by member and period
//	POST   /events              create an event, optionally expanding a recurrence
//	GET    /events/{id}         fetch a single event
//	PUT    /events/{id}         update an event
//	DELETE /events/{id}         delete an event or its whole series (?scope=series)
//	GET    /members             list members
//	POST   /members             create a member (admin only)
//	GET    /members/{id}        fetch a member
//	PUT    /members/{id}        update a member
//	DELETE /members/{id}        delete a member (admin only)
//	GET    /notes               list bulletin notes
//	POST   /notes               create a note
//	PUT    /notes/{id}          update a note
//	DELETE /notes/{id}          delete a note
//	GET    /notifications       drain pending due-signals
//	GET    /calendar.ics        export events as an iCalendar document
//
// Handlers decode requests, delegate to the application services, and map
// service errors onto HTTP status codes through a shared responder.
package http
