/*
	Project: Result Portal
	Spreadsheet mark imports, class/subject reports & self-service result lookup.
*/
package resultportal

/*
TODO: unique (name, section) on result_classes & (class_id, name) on result_subjects,
      then upsert on them: two concurrent imports can still create duplicate classes/subjects.
TODO: printable result cards (PDF) for `admin lookup`.
*/
