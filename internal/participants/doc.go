// Package participants builds the dataset-level files of the BIDS source tree:
// participants.tsv with one row per subject, and dataset_description.json.
//
// Demographics come from the first readable DICOM header found in a unit's raw
// directory. Anonymized headers without PatientSex or PatientAge produce
// "Unknown" and "0"; a directory with no readable DICOM at all aborts the run.
package participants
