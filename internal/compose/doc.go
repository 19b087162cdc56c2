/*
Package compose plans and renders the output videos of a job.

Planning is pure. NewPlan takes the two local inputs, their probe results and
the clip window, and computes for each input how it is scaled, cropped or
padded into its half of the vertical canvas:

  - cover: scale by max(cellW/w, cellH/h), round to even, crop the center
  - contain: scale by min(cellW/w, cellH/h), round to even, pad the center

The main input is trimmed to the requested window. The background input is
trimmed to a window of the same length starting at the background offset
(zero by default) and looped, so a short background still fills the clip.

Args turns a plan into ffmpeg arguments. Composer.Execute runs them, renders
the thumbnail from the combined output, and checks every output is a
non-empty file. Rendering is never retried.
*/
package compose
